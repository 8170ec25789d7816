package container

import (
	"github.com/openai/openai-go/v3/option"

	"github.com/jinford/spec-rag/internal/platform/config"
)

// openAIRequestOptions は互換 API を使う場合の接続先を返す
func openAIRequestOptions(cfg *config.Config) []option.RequestOption {
	if cfg.OpenAI.BaseURL == "" {
		return nil
	}
	return []option.RequestOption{option.WithBaseURL(cfg.OpenAI.BaseURL)}
}
