// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// HTTPステータスコードとクライアント向けメッセージを保持する。
type APIError struct {
	Code    string // エラーコード
	Status  int    // HTTPステータスコード
	Message string // クライアント向けメッセージ
	Details any    // 補足情報（バリデーションエラー一覧など）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeAuth         = "AUTH_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeRateLimit    = "RATE_LIMIT"
	ErrCodePersistence  = "PERSISTENCE_ERROR"
	ErrCodeUpload       = "UPLOAD_ERROR"
	ErrCodeInvalidInput = "INVALID_REQUEST"
)

// NewValidationError はバリデーション失敗エラーを生成する。
// 全フィールドの累積エラーをDetailsに保持する。
func NewValidationError(errors []string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Status:  422,
		Message: "Validation failed",
		Details: errors,
	}
}

// NewAuthRequiredError は未認証エラーを生成する。
func NewAuthRequiredError() *APIError {
	return &APIError{
		Code:    ErrCodeAuth,
		Status:  401,
		Message: "Authentication required",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メール未登録とパスワード不一致を区別せず、同一メッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:    ErrCodeAuth,
		Status:  401,
		Message: "Invalid email or password",
	}
}

// NewNotFoundError はリソース未検出エラーを生成する。
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:    ErrCodeConflict,
		Status:  409,
		Message: "Email already registered",
	}
}

// NewRateLimitError はレート制限超過エラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:    ErrCodeRateLimit,
		Status:  429,
		Message: "Too many requests. Please try again later.",
	}
}

// NewPersistenceError は永続化層の内部エラーを生成する。
// 内部詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func NewPersistenceError() *APIError {
	return &APIError{
		Code:    ErrCodePersistence,
		Status:  500,
		Message: "Internal server error",
	}
}

// NewUploadError はアップロード失敗エラーを生成する。
func NewUploadError(reason string) *APIError {
	return &APIError{
		Code:    ErrCodeUpload,
		Status:  400,
		Message: fmt.Sprintf("Upload failed: %s", reason),
	}
}
