package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/spec-rag/internal/core/chunk"
	"github.com/jinford/spec-rag/internal/core/ingestion"
	"github.com/jinford/spec-rag/internal/platform/database"
)

// ChunkRepository は core/ingestion.ChunkRepository を実装する PostgreSQL リポジトリ。
type ChunkRepository struct {
	tx *database.TransactionProvider
}

// NewChunkRepository は新しい ChunkRepository を返す。
func NewChunkRepository(tx *database.TransactionProvider) *ChunkRepository {
	return &ChunkRepository{tx: tx}
}

var _ ingestion.ChunkRepository = (*ChunkRepository)(nil)

const insertChunkSQL = `
	INSERT INTO document_chunks (
		id, document_id, chunk_index, content, page_number,
		char_offset_start, char_offset_end, token_count, embedding
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// ReplaceChunks は既存チャンクの削除と新規チャンクの挿入を1トランザクションで行う
// 途中で失敗した場合は何も書き込まれない
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []*chunk.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	_, err := database.Transact(ctx, r.tx, func(tx pgx.Tx) (struct{}, error) {
		// 同じ文書の置き換えが複数プロセスから同時に走っても混ざらないようにする
		if err := acquireXactLock(ctx, tx, LockID("document_chunks", documentID.String())); err != nil {
			return struct{}{}, err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, UUIDToPgtype(documentID)); err != nil {
			return struct{}{}, fmt.Errorf("failed to delete existing chunks: %w", err)
		}

		batch := &pgx.Batch{}
		for i, c := range chunks {
			batch.Queue(insertChunkSQL,
				UUIDToPgtype(c.ID),
				UUIDToPgtype(documentID),
				c.ChunkIndex,
				c.Content,
				c.PageNumber,
				IntToPgInt4(c.CharOffsetStart),
				IntToPgInt4(c.CharOffsetEnd),
				c.TokenCount,
				pgvector.NewVector(vectors[i]),
			)
		}

		results := tx.SendBatch(ctx, batch)
		for i := range chunks {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return struct{}{}, fmt.Errorf("failed to insert chunk %d: %w", i, err)
			}
		}
		if err := results.Close(); err != nil {
			return struct{}{}, fmt.Errorf("failed to close batch: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}
