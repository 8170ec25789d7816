package embedding

import (
	"errors"
	"strings"
)

var (
	// ErrRateLimited はプロバイダがレート制限を通知した場合のエラー（リトライ対象）
	ErrRateLimited = errors.New("embedding provider rate limited")

	// ErrTransientService は一時的なサービス障害（このクライアントではリトライしない）
	ErrTransientService = errors.New("embedding provider temporarily unavailable")

	// ErrIrrecoverable はリトライせずに呼び出し元へ返すエラー
	ErrIrrecoverable = errors.New("embedding failed")

	// ErrEmptyInput は空文字列の埋め込みを要求された場合のエラー
	ErrEmptyInput = errors.New("embedding input is empty")
)

// rateLimitSignatures はプロバイダがエラーメッセージで返すレート制限の目印
var rateLimitSignatures = []string{
	"429",
	"rate limit",
	"ratelimit",
	"resource_exhausted",
	"resource exhausted",
	"quota",
	"too many requests",
}

// IsRateLimitError はエラーがレート制限によるものか判定する
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range rateLimitSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
