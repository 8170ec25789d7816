package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/mo"

	"github.com/jinford/spec-rag/internal/core/ingestion"
)

// DocumentRepository は core/ingestion.DocumentRepository を実装する PostgreSQL リポジトリ。
type DocumentRepository struct {
	db DBTX
}

// NewDocumentRepository は新しい DocumentRepository を返す。
func NewDocumentRepository(db DBTX) *DocumentRepository {
	return &DocumentRepository{db: db}
}

var _ ingestion.DocumentRepository = (*DocumentRepository)(nil)

const documentColumns = `id, name, storage_path, status, page_count, chunk_count, error_message, created_at, updated_at`

func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *ingestion.Document) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO documents (id, name, storage_path, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		UUIDToPgtype(doc.ID), doc.Name, doc.StoragePath, string(doc.Status),
	)
	if err := row.Scan(&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetDocument(ctx context.Context, id uuid.UUID) (mo.Option[*ingestion.Document], error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, UUIDToPgtype(id))
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*ingestion.Document](), nil
		}
		return mo.None[*ingestion.Document](), fmt.Errorf("failed to get document: %w", err)
	}
	return mo.Some(doc), nil
}

func (r *DocumentRepository) ListDocuments(ctx context.Context) ([]*ingestion.Document, error) {
	rows, err := r.db.Query(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return collectDocuments(rows)
}

func (r *DocumentRepository) ListDocumentsByIDs(ctx context.Context, ids []uuid.UUID) ([]*ingestion.Document, error) {
	if len(ids) == 0 {
		return []*ingestion.Document{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ANY($1::uuid[]) ORDER BY name`,
		UUIDsToStrings(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents by ids: %w", err)
	}
	return collectDocuments(rows)
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status ingestion.Status, errorMessage *string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid document status: %q", status)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE documents
		SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1`,
		UUIDToPgtype(id), string(status), StringPtrToPgtext(errorMessage),
	)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ingestion.ErrDocumentNotFound, id)
	}
	return nil
}

func (r *DocumentRepository) MarkIndexed(ctx context.Context, id uuid.UUID, pageCount, chunkCount int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE documents
		SET status = 'indexed', page_count = $2, chunk_count = $3, error_message = NULL, updated_at = now()
		WHERE id = $1`,
		UUIDToPgtype(id), pageCount, chunkCount,
	)
	if err != nil {
		return fmt.Errorf("failed to mark document indexed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ingestion.ErrDocumentNotFound, id)
	}
	return nil
}

func (r *DocumentRepository) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, UUIDToPgtype(id))
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ingestion.ErrDocumentNotFound, id)
	}
	return nil
}

func collectDocuments(rows pgx.Rows) ([]*ingestion.Document, error) {
	defer rows.Close()

	docs := make([]*ingestion.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

func scanDocument(row pgx.Row) (*ingestion.Document, error) {
	var (
		id           pgtype.UUID
		status       string
		pageCount    int32
		chunkCount   int32
		errorMessage pgtype.Text
		createdAt    time.Time
		updatedAt    time.Time
		doc          ingestion.Document
	)
	if err := row.Scan(&id, &doc.Name, &doc.StoragePath, &status, &pageCount, &chunkCount, &errorMessage, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	doc.ID = PgtypeToUUID(id)
	doc.Status = ingestion.Status(status)
	doc.PageCount = int(pageCount)
	doc.ChunkCount = int(chunkCount)
	doc.ErrorMessage = PgtextToStringPtr(errorMessage)
	doc.CreatedAt = createdAt
	doc.UpdatedAt = updatedAt
	return &doc, nil
}
