package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/fasilmap/internal/auth"
	"github.com/hitoshi/fasilmap/internal/middleware"
	"github.com/hitoshi/fasilmap/internal/model"
	"github.com/hitoshi/fasilmap/internal/response"
	"github.com/hitoshi/fasilmap/internal/validation"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentUser(ctx context.Context, session *model.Session) *model.User
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	SessionTimeout() time.Duration
}

// AuthMetrics はログイン成否のメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。nilを許容する。
type AuthMetrics interface {
	RecordLoginSuccess()
	RecordLoginFailure()
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// AuthHandler はセッション認証関連のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	config    AuthHandlerConfig
	metrics   AuthMetrics
	validator *validation.Validator
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, m AuthMetrics) *AuthHandler {
	return &AuthHandler{
		service:   service,
		config:    config,
		metrics:   m,
		validator: validation.New(),
	}
}

// loginRules はログインリクエストの検証ルール。
var loginRules = map[string]validation.Rule{
	"email":    {Required: true, Type: validation.TypeEmail},
	"password": {Required: true, Type: validation.TypeString, MinLength: 1, MaxLength: 72},
}

// registerRules はユーザー登録リクエストの検証ルール。
// パスワード上限はbcryptの入力上限（72バイト）に合わせる。
var registerRules = map[string]validation.Rule{
	"name":     {Required: true, Type: validation.TypeString, MinLength: 2, MaxLength: 100},
	"email":    {Required: true, Type: validation.TypeEmail},
	"password": {Required: true, Type: validation.TypeString, MinLength: 8, MaxLength: 72},
}

// userResponse はユーザー情報のAPIレスポンス。
// パスワードハッシュは決して含めない。
type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
}

// Login はメールアドレスとパスワードによるログインを処理する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeJSONBody(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := h.validator.Validate(fields, loginRules)
	if !result.Valid {
		response.WriteErrorData(w, 422, "Validation failed", map[string]any{
			"errors": result.Errors,
		})
		return
	}

	email, _ := result.Data["email"].(string)
	password, _ := result.Data["password"].(string)

	session, err := h.service.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			if h.metrics != nil {
				h.metrics.RecordLoginFailure()
			}
			response.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	timeout := h.service.SessionTimeout()
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(timeout.Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})

	if h.metrics != nil {
		h.metrics.RecordLoginSuccess()
	}

	response.WriteSuccess(w, http.StatusOK, map[string]any{
		"user": userResponse{
			ID:    session.UserID,
			Name:  session.UserName,
			Email: session.UserEmail,
		},
		"session_timeout": int(timeout.Seconds()),
	}, "Login successful")
}

// Logout はセッションを破棄し、Cookieをクリアする。
// DELETE /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		// ログアウト失敗してもCookieはクリアする
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout",
				slog.String("error", logoutErr.Error()),
			)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})

	response.WriteSuccess(w, http.StatusOK, nil, "Logout successful")
}

// Profile は現在のログインユーザー情報を返す。
// GET /api/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		response.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	user := h.service.CurrentUser(r.Context(), session)
	if user == nil {
		response.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	response.WriteSuccess(w, http.StatusOK, map[string]any{
		"user": toUserResponse(user),
	}, "")
}

// Check はログイン状態を返す。未認証でも401にはならない。
// GET /api/auth/check
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		response.WriteSuccess(w, http.StatusOK, map[string]any{
			"authenticated": false,
		}, "")
		return
	}

	response.WriteSuccess(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": userResponse{
			ID:    session.UserID,
			Name:  session.UserName,
			Email: session.UserEmail,
		},
	}, "")
}

// Register は新規ユーザーを登録する。認証済みユーザーのみ実行できる。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeJSONBody(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := h.validator.Validate(fields, registerRules)
	if !result.Valid {
		response.WriteErrorData(w, 422, "Validation failed", map[string]any{
			"errors": result.Errors,
		})
		return
	}

	name, _ := result.Data["name"].(string)
	email, _ := result.Data["email"].(string)
	password, _ := result.Data["password"].(string)

	user, err := h.service.Register(r.Context(), name, email, password)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			response.WriteError(w, http.StatusConflict, "Email already registered")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	response.WriteSuccess(w, http.StatusCreated, map[string]any{
		"user": toUserResponse(user),
	}, "User registered")
}

// decodeJSONBody はリクエストボディをJSONオブジェクトとして読み取る。
// 数値はjson.Numberとして保持し、バリデーターの型強制に委ねる。
func decodeJSONBody(r *http.Request) (map[string]any, error) {
	fields := map[string]any{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}
