package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/spec-rag/internal/core/ask"
	"github.com/jinford/spec-rag/internal/core/ingestion"
	"github.com/jinford/spec-rag/internal/core/query"
	"github.com/jinford/spec-rag/internal/core/search"
)

type mockAsker struct {
	AskFunc func(ctx context.Context, question string) (*ask.Answer, error)
}

func (m *mockAsker) Ask(ctx context.Context, question string) (*ask.Answer, error) {
	return m.AskFunc(ctx, question)
}

type mockSearcher struct {
	SearchWithDetailsFunc func(ctx context.Context, q string, matchCount int) (*search.Response, error)
	SearchBM25Func        func(ctx context.Context, q string, matchCount int) ([]*search.HybridSearchResult, error)
	DescribeStrategyFunc  func(q string) search.StrategyDescription
}

func (m *mockSearcher) SearchWithDetails(ctx context.Context, q string, matchCount int) (*search.Response, error) {
	return m.SearchWithDetailsFunc(ctx, q, matchCount)
}

func (m *mockSearcher) SearchBM25(ctx context.Context, q string, matchCount int) ([]*search.HybridSearchResult, error) {
	return m.SearchBM25Func(ctx, q, matchCount)
}

func (m *mockSearcher) DescribeStrategy(q string) search.StrategyDescription {
	return m.DescribeStrategyFunc(q)
}

type mockDocumentService struct {
	GetDocumentFunc   func(ctx context.Context, id uuid.UUID) (*ingestion.Document, error)
	ListDocumentsFunc func(ctx context.Context) ([]*ingestion.Document, error)
	IngestFunc        func(ctx context.Context, id uuid.UUID) (*ingestion.IngestResult, error)
	DeleteFunc        func(ctx context.Context, id uuid.UUID) error
}

func (m *mockDocumentService) GetDocument(ctx context.Context, id uuid.UUID) (*ingestion.Document, error) {
	return m.GetDocumentFunc(ctx, id)
}

func (m *mockDocumentService) ListDocuments(ctx context.Context) ([]*ingestion.Document, error) {
	return m.ListDocumentsFunc(ctx)
}

func (m *mockDocumentService) Ingest(ctx context.Context, id uuid.UUID) (*ingestion.IngestResult, error) {
	return m.IngestFunc(ctx, id)
}

func (m *mockDocumentService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.DeleteFunc(ctx, id)
}

func newTestServer(asker Asker, searcher Searcher, docs DocumentService) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(asker, searcher, docs, WithServerLogger(logger))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	h := newTestServer(nil, nil, nil).Handler()

	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, Version, body.Version)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestChat(t *testing.T) {
	start, end := 10, 120
	docID, chunkID := uuid.New(), uuid.New()

	t.Run("回答と出典を返す", func(t *testing.T) {
		asker := &mockAsker{AskFunc: func(ctx context.Context, question string) (*ask.Answer, error) {
			assert.Equal(t, "What is the yield strength of A106 Grade B?", question)
			return &ask.Answer{
				Text:     "A106 Grade B requires 35 ksi minimum yield strength [1].",
				Strategy: "fused",
				Citations: []ask.Citation{{
					Ref: 1, DocumentID: docID, DocumentName: "A106.pdf", ChunkID: chunkID,
					PageNumber: 4, CharOffsetStart: &start, CharOffsetEnd: &end, Score: 0.82,
				}},
			}, nil
		}}
		h := newTestServer(asker, nil, nil).Handler()

		rec := do(t, h, http.MethodPost, "/api/chat", `{"query": "What is the yield strength of A106 Grade B?"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[chatResponse](t, rec)
		assert.Contains(t, body.Response, "A106")
		require.Len(t, body.Sources, 1)
		assert.Equal(t, "A106.pdf", body.Sources[0].Document)
		assert.Equal(t, 4, body.Sources[0].Page)
		assert.Equal(t, 10, *body.Sources[0].CharOffsetStart)
		assert.Equal(t, 120, *body.Sources[0].CharOffsetEnd)
	})

	t.Run("空のクエリは400", func(t *testing.T) {
		asker := &mockAsker{AskFunc: func(ctx context.Context, question string) (*ask.Answer, error) {
			t.Fatal("Ask should not be called")
			return nil, nil
		}}
		h := newTestServer(asker, nil, nil).Handler()

		rec := do(t, h, http.MethodPost, "/api/chat", `{"query": "  "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Query is required.", decode[errorResponse](t, rec).Detail)
	})

	t.Run("不正なJSONは422", func(t *testing.T) {
		h := newTestServer(&mockAsker{}, nil, nil).Handler()

		rec := do(t, h, http.MethodPost, "/api/chat", `not valid json`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("検索が使えない場合は503で内部情報を出さない", func(t *testing.T) {
		asker := &mockAsker{AskFunc: func(ctx context.Context, question string) (*ask.Answer, error) {
			return nil, errors.Join(ask.ErrTemporarilyUnavailable, errors.New("dial tcp 10.0.0.5:5432: connection refused"))
		}}
		h := newTestServer(asker, nil, nil).Handler()

		rec := do(t, h, http.MethodPost, "/api/chat", `{"query": "A790 tensile"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.NotContains(t, rec.Body.String(), "10.0.0.5")
		assert.Contains(t, decode[errorResponse](t, rec).Detail, "temporarily unavailable")
	})

	t.Run("その他のエラーは500", func(t *testing.T) {
		asker := &mockAsker{AskFunc: func(ctx context.Context, question string) (*ask.Answer, error) {
			return nil, errors.New("boom")
		}}
		h := newTestServer(asker, nil, nil).Handler()

		rec := do(t, h, http.MethodPost, "/api/chat", `{"query": "A790"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "boom")
	})

	t.Run("panicは500に変換", func(t *testing.T) {
		asker := &mockAsker{AskFunc: func(ctx context.Context, question string) (*ask.Answer, error) {
			panic("unexpected")
		}}
		h := newTestServer(asker, nil, nil).Handler()

		rec := do(t, h, http.MethodPost, "/api/chat", `{"query": "A790"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestCORS(t *testing.T) {
	h := newTestServer(nil, nil, nil).Handler()

	t.Run("プリフライトは200", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("Originなしはワイルドカード", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/health", "")
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSearch(t *testing.T) {
	result := &search.HybridSearchResult{
		ID: uuid.New(), DocumentID: uuid.New(), Content: "Tensile Requirements", PageNumber: 3,
		BM25Score: 0.4, VectorScore: 0.8, CombinedScore: 0.56,
	}

	t.Run("ハイブリッド検索", func(t *testing.T) {
		var gotCount int
		searcher := &mockSearcher{SearchWithDetailsFunc: func(ctx context.Context, q string, matchCount int) (*search.Response, error) {
			gotCount = matchCount
			return &search.Response{
				Query:      q,
				SearchText: q + " product_type:pipe",
				Strategy:   search.StrategyFused,
				Weights:    query.SearchWeights{BM25: 0.6, Vector: 0.4},
				Results:    []*search.HybridSearchResult{result},
				Enhancement: &query.EnhancementResult{
					OriginalQuery:     q,
					EnhancedQuery:     q + " product_type:pipe",
					StrategiesApplied: []string{"product_type"},
				},
			}, nil
		}}
		h := newTestServer(nil, searcher, nil).Handler()

		rec := do(t, h, http.MethodPost, "/api/search", `{"query": "A790 tensile"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[searchResponse](t, rec)
		assert.Equal(t, search.DefaultMatchCount, gotCount)
		assert.Equal(t, search.StrategyFused, body.Strategy)
		assert.InDelta(t, 0.6, body.Weights.BM25, 1e-9)
		require.Len(t, body.Results, 1)
		assert.Equal(t, result.ID.String(), body.Results[0].ID)
		require.NotNil(t, body.Enhancement)
		assert.Equal(t, []string{"product_type"}, body.Enhancement.StrategiesApplied)
	})

	t.Run("BM25のみ", func(t *testing.T) {
		searcher := &mockSearcher{SearchBM25Func: func(ctx context.Context, q string, matchCount int) ([]*search.HybridSearchResult, error) {
			assert.Equal(t, 3, matchCount)
			return []*search.HybridSearchResult{result}, nil
		}}
		h := newTestServer(nil, searcher, nil).Handler()

		rec := do(t, h, http.MethodPost, "/api/search", `{"query": "annealed", "mode": "bm25", "match_count": 3}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, search.StrategyKeyword, decode[searchResponse](t, rec).Strategy)
	})

	t.Run("不正な入力は400", func(t *testing.T) {
		h := newTestServer(nil, &mockSearcher{}, nil).Handler()

		tests := []struct {
			name string
			body string
		}{
			{name: "空のクエリ", body: `{"query": ""}`},
			{name: "未知のモード", body: `{"query": "A790", "mode": "fuzzy"}`},
			{name: "件数が上限超過", body: `{"query": "A790", "match_count": 500}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := do(t, h, http.MethodPost, "/api/search", tt.body)
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			})
		}
	})

	t.Run("検索不能は503", func(t *testing.T) {
		searcher := &mockSearcher{SearchWithDetailsFunc: func(ctx context.Context, q string, matchCount int) (*search.Response, error) {
			return nil, search.ErrSearchUnavailable
		}}
		h := newTestServer(nil, searcher, nil).Handler()

		rec := do(t, h, http.MethodPost, "/api/search", `{"query": "A790"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestSearchStrategy(t *testing.T) {
	searcher := &mockSearcher{DescribeStrategyFunc: func(q string) search.StrategyDescription {
		return search.StrategyDescription{
			Query:           q,
			BoostExactMatch: true,
			Weights:         query.SearchWeights{BM25: 0.6, Vector: 0.4},
			ExtractedCodes:  map[query.CodeClass][]string{query.CodeClassStandard: {"A790"}},
		}
	}}
	h := newTestServer(nil, searcher, nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/search/strategy", `{"query": "A790 yield"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[strategyResponse](t, rec)
	assert.True(t, body.BoostExactMatch)
	assert.Equal(t, []string{"A790"}, body.ExtractedCodes[query.CodeClassStandard])
}

func TestDocuments(t *testing.T) {
	id := uuid.New()
	doc := &ingestion.Document{ID: id, Name: "A790.pdf", Status: ingestion.StatusPending}

	t.Run("一覧", func(t *testing.T) {
		docs := &mockDocumentService{ListDocumentsFunc: func(ctx context.Context) ([]*ingestion.Document, error) {
			return []*ingestion.Document{doc}, nil
		}}
		h := newTestServer(nil, nil, docs).Handler()

		rec := do(t, h, http.MethodGet, "/api/documents", "")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[[]documentResponse](t, rec)
		require.Len(t, body, 1)
		assert.Equal(t, "pending", body[0].Status)
	})

	t.Run("取り込みはバックグラウンドで実行", func(t *testing.T) {
		var ingested atomic.Bool
		docs := &mockDocumentService{
			GetDocumentFunc: func(ctx context.Context, got uuid.UUID) (*ingestion.Document, error) {
				return doc, nil
			},
			IngestFunc: func(ctx context.Context, got uuid.UUID) (*ingestion.IngestResult, error) {
				assert.Equal(t, id, got)
				ingested.Store(true)
				return &ingestion.IngestResult{DocumentID: got}, nil
			},
		}
		srv := newTestServer(nil, nil, docs)

		rec := do(t, srv.Handler(), http.MethodPost, "/api/documents/"+id.String()+"/ingest", "")
		assert.Equal(t, http.StatusAccepted, rec.Code)

		srv.Wait()
		assert.True(t, ingested.Load())
	})

	t.Run("処理中の文書は409", func(t *testing.T) {
		docs := &mockDocumentService{GetDocumentFunc: func(ctx context.Context, got uuid.UUID) (*ingestion.Document, error) {
			return &ingestion.Document{ID: got, Status: ingestion.StatusProcessing}, nil
		}}
		h := newTestServer(nil, nil, docs).Handler()

		rec := do(t, h, http.MethodPost, "/api/documents/"+id.String()+"/ingest", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("存在しない文書は404", func(t *testing.T) {
		docs := &mockDocumentService{
			GetDocumentFunc: func(ctx context.Context, got uuid.UUID) (*ingestion.Document, error) {
				return nil, ingestion.ErrDocumentNotFound
			},
			DeleteFunc: func(ctx context.Context, got uuid.UUID) error {
				return ingestion.ErrDocumentNotFound
			},
		}
		h := newTestServer(nil, nil, docs).Handler()

		assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/documents/"+id.String(), "").Code)
		assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/documents/"+id.String(), "").Code)
	})

	t.Run("削除は204", func(t *testing.T) {
		docs := &mockDocumentService{DeleteFunc: func(ctx context.Context, got uuid.UUID) error {
			return nil
		}}
		h := newTestServer(nil, nil, docs).Handler()

		assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/documents/"+id.String(), "").Code)
	})

	t.Run("不正なIDは400", func(t *testing.T) {
		h := newTestServer(nil, nil, &mockDocumentService{}).Handler()

		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/documents/not-a-uuid", "").Code)
	})
}
