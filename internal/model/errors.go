package model

import (
	"fmt"
	"net/http"
)

// APIError は統一エラーフォーマットを表す。
// Statusはクライアントに返すHTTPステータスコード。
// Messageは内部情報を含まない、クライアントに表示可能なメッセージ。
type APIError struct {
	Code       string // エラーコード
	Message    string // エラーメッセージ
	Status     int    // HTTPステータスコード
	RetryAfter int    // レート制限時の再試行までの秒数。0の場合は未設定。
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeAuthentication = "AUTHENTICATION_ERROR"
	ErrCodeAuthorization  = "AUTHORIZATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// NewValidationError は入力検証エラー（400）を生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewAuthenticationError は未認証エラー（401）を生成する。
// セッションの欠如・無効・期限切れはすべてこのエラーに統一する。
func NewAuthenticationError() *APIError {
	return &APIError{
		Code:    ErrCodeAuthentication,
		Message: "認証が必要です。",
		Status:  http.StatusUnauthorized,
	}
}

// NewInvalidCredentialsError はログイン失敗エラー（401）を生成する。
// メールアドレス不存在とパスワード不一致を区別せず、同一メッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:    ErrCodeAuthentication,
		Message: "メールアドレスまたはパスワードが正しくありません。",
		Status:  http.StatusUnauthorized,
	}
}

// NewAuthorizationError は権限不足エラー（403）を生成する。
func NewAuthorizationError() *APIError {
	return &APIError{
		Code:    ErrCodeAuthorization,
		Message: "この操作を行う権限がありません。",
		Status:  http.StatusForbidden,
	}
}

// NewNotFoundError はリソース未検出エラー（404）を生成する。
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%sが見つかりません。", resource),
		Status:  http.StatusNotFound,
	}
}

// NewConflictError は一意制約違反エラー（409）を生成する。
// fieldには重複したフィールド名（username、email等）を指定する。
func NewConflictError(field string) *APIError {
	return &APIError{
		Code:    ErrCodeConflict,
		Message: fmt.Sprintf("この%sは既に使用されています。", field),
		Status:  http.StatusConflict,
	}
}

// NewRateLimitError はレート制限エラー（429）を生成する。
// retryAfterSecは再試行可能になるまでの秒数。
func NewRateLimitError(retryAfterSec int) *APIError {
	return &APIError{
		Code:       ErrCodeRateLimited,
		Message:    "リクエストが多すぎます。しばらく待ってから再度お試しください。",
		Status:     http.StatusTooManyRequests,
		RetryAfter: retryAfterSec,
	}
}

// NewInternalError は内部エラー（500）を生成する。
// 原因の詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:    ErrCodeInternal,
		Message: "内部エラーが発生しました。",
		Status:  http.StatusInternalServerError,
	}
}
