// Package auth はパスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/fasilmap/internal/model"
	"github.com/hitoshi/fasilmap/internal/repository"
)

// ErrInvalidCredentials はメールアドレスまたはパスワードの不一致を表す。
// どちらが誤っているかは区別しない。
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrDuplicateEmail はユーザー登録時のメールアドレス重複を表す。
var ErrDuplicateEmail = errors.New("email already registered")

// PasswordHasher はパスワードのハッシュ化と検証のインターフェース。
// security.PasswordHasherの部分集合として定義する。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	// SessionTimeout はセッションの固定有効期間。
	// 有効期限はログイン時刻から算出され、アクセスによって延長されない。
	SessionTimeout time.Duration
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      PasswordHasher
	config      ServiceConfig
	nowFn       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher PasswordHasher,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		config:      config,
		nowFn:       time.Now,
	}
}

// SessionTimeout はセッションの固定有効期間を返す。
func (s *Service) SessionTimeout() time.Duration {
	return s.config.SessionTimeout
}

// Login はメールアドレスとパスワードを検証し、セッションを発行する。
// メール未登録とパスワード不一致はいずれもErrInvalidCredentialsを返し、
// 攻撃者に登録状況を漏らさない。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := s.nowFn()
	session := &model.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
		LoginTime: now,
		ExpiresAt: now.Add(s.config.SessionTimeout),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// IsLoggedIn はセッションが有効であるかを返す。
// ログイン時刻からタイムアウト以上経過したセッションは無効とみなす。
// 境界値ちょうど（経過時間 == タイムアウト）も無効。
func (s *Service) IsLoggedIn(session *model.Session) bool {
	if session == nil || session.UserID == "" {
		return false
	}
	return s.nowFn().Sub(session.LoginTime) < s.config.SessionTimeout
}

// CurrentUser はセッションに紐づくユーザーを解決する。
// セッションが無効な場合はnilを返す。永続化層の障害も「未認証」として扱い、
// エラーを外に出さない（フェイルクローズ）。
func (s *Service) CurrentUser(ctx context.Context, session *model.Session) *model.User {
	if !s.IsLoggedIn(session) {
		return nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		slog.Error("failed to resolve current user, treating as unauthenticated",
			slog.String("user_id", session.UserID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return user
}

// Register は新規ユーザーを作成する。
// 呼び出し側で認証済みであることを確認すること（管理者のみが登録できる）。
// メールアドレスが重複している場合はErrDuplicateEmailを返す。
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.nowFn(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
	)

	return user, nil
}
