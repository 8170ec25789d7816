package ingestion

import (
	"context"
	"io"

	"github.com/jinford/spec-rag/internal/core/chunk"
)

// BlobStore は文書原本の保存先
type BlobStore interface {
	Upload(ctx context.Context, path string, r io.Reader) error
	Download(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// TextExtractor は文書原本からページごとのテキストを取り出す
type TextExtractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]chunk.Page, error)
}

// BatchEmbedder は複数テキストを入力順にベクトル化する
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string, concurrency int) ([][]float32, error)
}
