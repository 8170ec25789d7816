package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/openai/openai-go/v3"

	"github.com/jinford/spec-rag/internal/core/embedding"
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

	// ErrMaxRetriesExceeded は最大リトライ回数を超過した場合のエラー
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrEmptyResponse は API が結果を返さなかった場合のエラー
	ErrEmptyResponse = errors.New("empty response from OpenAI API")
)

// classifyError は API エラーを core/embedding のエラー分類に揃える
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if isRateLimitError(err) {
		return fmt.Errorf("%w: %w", embedding.ErrRateLimited, err)
	}
	if isTransientError(err) {
		return fmt.Errorf("%w: %w", embedding.ErrTransientService, err)
	}
	return err
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

func isTransientError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
