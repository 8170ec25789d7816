package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/spec-rag/internal/core/ask"
	"github.com/jinford/spec-rag/internal/core/ingestion"
	"github.com/jinford/spec-rag/internal/core/search"
)

// Version は /health で返すバージョン
const Version = "0.1.0"

// Asker は質問応答を提供する
type Asker interface {
	Ask(ctx context.Context, question string) (*ask.Answer, error)
}

// Searcher は検索を提供する
type Searcher interface {
	SearchWithDetails(ctx context.Context, q string, matchCount int) (*search.Response, error)
	SearchBM25(ctx context.Context, q string, matchCount int) ([]*search.HybridSearchResult, error)
	DescribeStrategy(q string) search.StrategyDescription
}

// DocumentService は文書の参照・取り込み・削除を提供する
type DocumentService interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*ingestion.Document, error)
	ListDocuments(ctx context.Context) ([]*ingestion.Document, error)
	Ingest(ctx context.Context, id uuid.UUID) (*ingestion.IngestResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Server は HTTP API を提供する
type Server struct {
	asker      Asker
	searcher   Searcher
	documents  DocumentService
	matchCount int
	logger     *slog.Logger

	// background は実行中のバックグラウンド取り込み
	background sync.WaitGroup
}

// ServerOption は Server のオプション設定
type ServerOption func(*Server)

// WithServerLogger はロガーを設定する
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithDefaultMatchCount はリクエストで件数が指定されない場合の検索件数を設定する
func WithDefaultMatchCount(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.matchCount = n
		}
	}
}

// NewServer は新しい Server を作成する
func NewServer(asker Asker, searcher Searcher, documents DocumentService, opts ...ServerOption) *Server {
	s := &Server{
		asker:      asker,
		searcher:   searcher,
		documents:  documents,
		matchCount: search.DefaultMatchCount,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler はルーティングとミドルウェアを組み立てた http.Handler を返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/search/strategy", s.handleSearchStrategy)
	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("POST /api/documents/{id}/ingest", s.handleIngestDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)

	return s.recoverMiddleware(s.logMiddleware(corsMiddleware(mux)))
}

// RunConfig は HTTP サーバの起動設定
type RunConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Run は ctx がキャンセルされるまでサーバを起動する
// 停止時は処理中のリクエストとバックグラウンド取り込みの完了を待つ
func (s *Server) Run(ctx context.Context, cfg RunConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("HTTPサーバを起動しました", "addr", cfg.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("HTTPサーバを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}
	s.Wait()
	return nil
}

// Wait はバックグラウンド取り込みの完了を待つ
func (s *Server) Wait() {
	s.background.Wait()
}
