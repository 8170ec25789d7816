package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/spec-rag/internal/core/chunk"
)

// DefaultEncoding は OpenAI の text-embedding-3 系と互換のエンコーディング
const DefaultEncoding = "cl100k_base"

// Counter は tiktoken でトークン数を数える
type Counter struct {
	encoder *tiktoken.Tiktoken
}

// NewCounter は指定エンコーディングの Counter を作成する
// 空文字列の場合は cl100k_base を使う
func NewCounter(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	encoder, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}
	return &Counter{encoder: encoder}, nil
}

// CountTokens はテキストのトークン数を返す
func (c *Counter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoder.Encode(text, nil, nil))
}

var _ chunk.TokenCounter = (*Counter)(nil)
