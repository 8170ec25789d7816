package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/spec-rag/internal/core/search"
)

// SearchRepository は core/search.Repository を実装する PostgreSQL リポジトリ。
type SearchRepository struct {
	db DBTX
}

// NewSearchRepository は新しい SearchRepository を返す。
func NewSearchRepository(db DBTX) *SearchRepository {
	return &SearchRepository{db: db}
}

var _ search.Repository = (*SearchRepository)(nil)

func (r *SearchRepository) FusedSearch(ctx context.Context, params search.FusedSearchParams) ([]*search.HybridSearchResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, content, page_number, char_offset_start, char_offset_end,
		        bm25_score, vector_score, combined_score
		 FROM hybrid_search($1, $2, $3, $4, $5)`,
		params.QueryText,
		pgvector.NewVector(params.QueryEmbedding),
		params.MatchCount,
		params.BM25Weight,
		params.VectorWeight,
	)
	if err != nil {
		return nil, mapSearchError("hybrid_search", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*search.HybridSearchResult, error) {
		var (
			c      chunkRow
			result search.HybridSearchResult
		)
		if err := row.Scan(c.targets(&result.BM25Score, &result.VectorScore, &result.CombinedScore)...); err != nil {
			return nil, err
		}
		c.fill(&result.ID, &result.DocumentID, &result.Content, &result.PageNumber, &result.CharOffsetStart, &result.CharOffsetEnd)
		return &result, nil
	})
	if err != nil {
		return nil, mapSearchError("hybrid_search", err)
	}
	return results, nil
}

func (r *SearchRepository) VectorSearch(ctx context.Context, embedding []float32, matchCount int, minSimilarity float64) ([]*search.SimilarityHit, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, content, page_number, char_offset_start, char_offset_end, similarity
		 FROM match_chunks($1, $2, $3)`,
		pgvector.NewVector(embedding),
		matchCount,
		minSimilarity,
	)
	if err != nil {
		return nil, mapSearchError("match_chunks", err)
	}

	hits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*search.SimilarityHit, error) {
		var (
			c   chunkRow
			hit search.SimilarityHit
		)
		if err := row.Scan(c.targets(&hit.Similarity)...); err != nil {
			return nil, err
		}
		c.fill(&hit.ID, &hit.DocumentID, &hit.Content, &hit.PageNumber, &hit.CharOffsetStart, &hit.CharOffsetEnd)
		return &hit, nil
	})
	if err != nil {
		return nil, mapSearchError("match_chunks", err)
	}
	return hits, nil
}

func (r *SearchRepository) KeywordSearch(ctx context.Context, queryText string, matchCount int) ([]*search.KeywordHit, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.document_id, c.content, c.page_number, c.char_offset_start, c.char_offset_end,
		        ts_rank_cd(c.content_tsv, q.tsq, 32)::FLOAT8 AS rank
		 FROM document_chunks c, (SELECT spec_rag_tsquery($1) AS tsq) q
		 WHERE c.content_tsv @@ q.tsq
		 ORDER BY rank DESC, c.id
		 LIMIT $2`,
		queryText,
		matchCount,
	)
	if err != nil {
		return nil, mapSearchError("keyword search", err)
	}

	hits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*search.KeywordHit, error) {
		var (
			c   chunkRow
			hit search.KeywordHit
		)
		if err := row.Scan(c.targets(&hit.Rank)...); err != nil {
			return nil, err
		}
		c.fill(&hit.ID, &hit.DocumentID, &hit.Content, &hit.PageNumber, &hit.CharOffsetStart, &hit.CharOffsetEnd)
		return &hit, nil
	})
	if err != nil {
		return nil, mapSearchError("keyword search", err)
	}
	return hits, nil
}

// chunkRow は検索結果に共通するチャンク列
type chunkRow struct {
	id              pgtype.UUID
	documentID      pgtype.UUID
	content         string
	pageNumber      int32
	charOffsetStart pgtype.Int4
	charOffsetEnd   pgtype.Int4
}

func (c *chunkRow) targets(extra ...any) []any {
	return append([]any{&c.id, &c.documentID, &c.content, &c.pageNumber, &c.charOffsetStart, &c.charOffsetEnd}, extra...)
}

func (c *chunkRow) fill(id, documentID *uuid.UUID, content *string, pageNumber *int, start, end **int) {
	*id = PgtypeToUUID(c.id)
	*documentID = PgtypeToUUID(c.documentID)
	*content = c.content
	*pageNumber = int(c.pageNumber)
	*start = PgInt4ToIntPtr(c.charOffsetStart)
	*end = PgInt4ToIntPtr(c.charOffsetEnd)
}
