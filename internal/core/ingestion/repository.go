package ingestion

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/spec-rag/internal/core/chunk"
)

// DocumentRepository は文書メタデータへのアクセスを抽象化する
// テスト時のモック用に消費者側で定義
type DocumentRepository interface {
	CreateDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (mo.Option[*Document], error)
	ListDocuments(ctx context.Context) ([]*Document, error)
	ListDocumentsByIDs(ctx context.Context, ids []uuid.UUID) ([]*Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMessage *string) error
	MarkIndexed(ctx context.Context, id uuid.UUID, pageCount, chunkCount int) error
	DeleteDocument(ctx context.Context, id uuid.UUID) error
}

// ChunkRepository はチャンクとベクトルの保存を抽象化する
type ChunkRepository interface {
	// ReplaceChunks は文書の既存チャンクを削除し、新しいチャンクを1トランザクションで保存する
	ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []*chunk.Chunk, vectors [][]float32) error
}
