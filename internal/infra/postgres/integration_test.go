package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/spec-rag/internal/core/chunk"
	"github.com/jinford/spec-rag/internal/core/ingestion"
	"github.com/jinford/spec-rag/internal/core/search"
	"github.com/jinford/spec-rag/internal/platform/database"
)

const testDimension = 3

// startPostgres は pgvector 入りの PostgreSQL コンテナを起動し、接続プールを返す
// Docker が利用できない環境ではテストをスキップする
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("short モードでは統合テストをスキップ")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("Docker に接続できません: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("Docker に接続できません: %v", err)
	}
	pool.MaxWait = 2 * time.Minute

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "pgvector/pgvector",
		Tag:        "pg16",
		Env: []string{
			"POSTGRES_USER=specrag",
			"POSTGRES_PASSWORD=specrag",
			"POSTGRES_DB=specrag",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pool.Purge(resource)
	})
	_ = resource.Expire(300)

	connString := fmt.Sprintf("postgres://specrag:specrag@%s/specrag?sslmode=disable", resource.GetHostPort("5432/tcp"))

	var db *database.Database
	err = pool.Retry(func() error {
		var openErr error
		db, openErr = database.Open(context.Background(), connString, 4)
		return openErr
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, Migrate(context.Background(), db.Pool, testDimension))
	return db.Pool
}

func TestPostgresRepositories(t *testing.T) {
	pgPool := startPostgres(t)
	ctx := context.Background()

	docs := NewDocumentRepository(pgPool)
	chunks := NewChunkRepository(database.NewTransactionProvider(pgPool))
	searchRepo := NewSearchRepository(pgPool)

	doc := &ingestion.Document{
		ID:          uuid.New(),
		Name:        "A790.pdf",
		StoragePath: "a790/A790.pdf",
		Status:      ingestion.StatusPending,
	}
	require.NoError(t, docs.CreateDocument(ctx, doc))

	t.Run("マイグレーションは冪等", func(t *testing.T) {
		require.NoError(t, Migrate(ctx, pgPool, testDimension))
	})

	t.Run("チャンクの置き換えと検索", func(t *testing.T) {
		docChunks := []*chunk.Chunk{
			{ID: uuid.New(), DocumentID: doc.ID, ChunkIndex: 0, Content: "Duplex stainless steel pipe tensile strength requirements", PageNumber: 1, CharOffsetStart: 0, CharOffsetEnd: 56, TokenCount: 8},
			{ID: uuid.New(), DocumentID: doc.ID, ChunkIndex: 1, Content: "Heat treatment shall be solution annealed and quenched", PageNumber: 2, CharOffsetStart: 0, CharOffsetEnd: 54, TokenCount: 8},
		}
		vectors := [][]float32{{1, 0, 0}, {0, 1, 0}}

		require.NoError(t, chunks.ReplaceChunks(ctx, doc.ID, docChunks, vectors))
		// 2回目の置き換えで重複しない
		require.NoError(t, chunks.ReplaceChunks(ctx, doc.ID, docChunks, vectors))

		fused, err := searchRepo.FusedSearch(ctx, search.FusedSearchParams{
			QueryText:      "tensile strength",
			QueryEmbedding: []float32{1, 0, 0},
			MatchCount:     5,
			BM25Weight:     0.3,
			VectorWeight:   0.7,
		})
		require.NoError(t, err)
		require.Len(t, fused, 2)
		assert.Equal(t, docChunks[0].ID, fused[0].ID)
		assert.Equal(t, doc.ID, fused[0].DocumentID)
		assert.Greater(t, fused[0].BM25Score, 0.0)
		assert.InDelta(t, 1.0, fused[0].VectorScore, 1e-6)
		assert.GreaterOrEqual(t, fused[0].CombinedScore, fused[1].CombinedScore)
		require.NotNil(t, fused[0].CharOffsetEnd)
		assert.Equal(t, 56, *fused[0].CharOffsetEnd)

		hits, err := searchRepo.VectorSearch(ctx, []float32{0, 1, 0}, 5, 0.5)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, 2, hits[0].PageNumber)

		keyword, err := searchRepo.KeywordSearch(ctx, "annealed", 5)
		require.NoError(t, err)
		require.Len(t, keyword, 1)
		assert.Equal(t, docChunks[1].ID, keyword[0].ID)
	})

	t.Run("件数不一致は書き込まない", func(t *testing.T) {
		err := chunks.ReplaceChunks(ctx, doc.ID, []*chunk.Chunk{{ID: uuid.New(), Content: "x", PageNumber: 1}}, nil)
		require.Error(t, err)

		hits, err := searchRepo.VectorSearch(ctx, []float32{1, 0, 0}, 10, -1)
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("ステータス更新と取得", func(t *testing.T) {
		require.NoError(t, docs.MarkIndexed(ctx, doc.ID, 2, 2))

		got, err := docs.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		require.True(t, got.IsPresent())
		assert.Equal(t, ingestion.StatusIndexed, got.MustGet().Status)
		assert.Equal(t, 2, got.MustGet().ChunkCount)

		listed, err := docs.ListDocumentsByIDs(ctx, []uuid.UUID{doc.ID, uuid.New()})
		require.NoError(t, err)
		assert.Len(t, listed, 1)
	})

	t.Run("存在しない文書", func(t *testing.T) {
		got, err := docs.GetDocument(ctx, uuid.New())
		require.NoError(t, err)
		assert.True(t, got.IsAbsent())

		err = docs.UpdateStatus(ctx, uuid.New(), ingestion.StatusError, nil)
		assert.ErrorIs(t, err, ingestion.ErrDocumentNotFound)
	})

	t.Run("文書削除でチャンクも消える", func(t *testing.T) {
		require.NoError(t, docs.DeleteDocument(ctx, doc.ID))

		hits, err := searchRepo.VectorSearch(ctx, []float32{1, 0, 0}, 10, -1)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestSearchCapabilityUnavailable(t *testing.T) {
	pgPool := startPostgres(t)
	ctx := context.Background()

	_, err := pgPool.Exec(ctx, `DROP FUNCTION hybrid_search(TEXT, vector, INT, FLOAT8, FLOAT8)`)
	require.NoError(t, err)

	_, err = NewSearchRepository(pgPool).FusedSearch(ctx, search.FusedSearchParams{
		QueryText:      "A790",
		QueryEmbedding: []float32{1, 0, 0},
		MatchCount:     5,
		BM25Weight:     0.5,
		VectorWeight:   0.5,
	})
	assert.ErrorIs(t, err, search.ErrCapabilityUnavailable)
}
