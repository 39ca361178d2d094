package fetch

import (
	"errors"
	"io"
	"strings"
)

// Outcome はリモート呼び出し1回の結果の分類。メトリクスのラベルとして使用する。
type Outcome string

const (
	// OutcomeOK は文書の取得に成功した。
	OutcomeOK Outcome = "ok"
	// OutcomeRemoteError はリモートサービスがエラーを返した（非2xx、またはエラー本文）。
	OutcomeRemoteError Outcome = "remote_error"
	// OutcomeRetry はHTTPのフレーミングが壊れていた。再試行は呼び出し元の判断に委ねる。
	OutcomeRetry Outcome = "retry"
	// OutcomeUnexpected はその他の失敗（ネットワークエラー、デコードエラーなど）。
	OutcomeUnexpected Outcome = "unexpected"
	// OutcomeUnauthorized は認証情報が無効だった。
	OutcomeUnauthorized Outcome = "unauthorized"
)

// ClassifyHTTPStatus はHTTPステータスコードをフェッチ結果に分類する。
func ClassifyHTTPStatus(statusCode int) Outcome {
	if statusCode >= 200 && statusCode < 300 {
		return OutcomeOK
	}
	return OutcomeRemoteError
}

// ClassifyTransportError はHTTPクライアントが返したエラーを分類する。
// ステータス行が壊れている、または応答前に接続が閉じられた場合はOutcomeRetry。
func ClassifyTransportError(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return OutcomeRetry
	}
	// net/httpはステータス行の解析失敗を型付きエラーとして公開していない
	if strings.Contains(err.Error(), "malformed HTTP") {
		return OutcomeRetry
	}
	return OutcomeUnexpected
}
