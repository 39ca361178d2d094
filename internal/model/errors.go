package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// レスポンスに含める原因カテゴリと対処方法を持つ。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, feed, system
	Action   string // クライアント向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingParameter    = "MISSING_PARAMETER"
	ErrCodeAuthorizationFailed = "AUTHORIZATION_FAILED"
	ErrCodeMalformedActivity   = "MALFORMED_ACTIVITY"
	ErrCodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewMissingParameterError は必須クエリパラメータ欠落エラーを生成する。
func NewMissingParameterError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingParameter,
		Message:  fmt.Sprintf("必須パラメータが指定されていません: %s", name),
		Category: "validation",
		Action:   fmt.Sprintf("クエリパラメータ %s を指定してください。", name),
	}
}

// NewAuthorizationFailedError は認証情報が無効な場合のエラーを生成する。
func NewAuthorizationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthorizationFailed,
		Message:  "Invalid Credentials",
		Category: "auth",
		Action:   "サーバーの認証情報ファイルを確認してください。",
	}
}

// NewMalformedActivityError はアクティビティ文書の構造が不正な場合のエラーを生成する。
func NewMalformedActivityError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeMalformedActivity,
		Message:  fmt.Sprintf("アクティビティの解析に失敗しました: %s", reason),
		Category: "feed",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}
