package container

import (
	"context"
	"fmt"
	"log/slog"

	coreask "github.com/jinford/spec-rag/internal/core/ask"
	"github.com/jinford/spec-rag/internal/core/chunk"
	"github.com/jinford/spec-rag/internal/core/embedding"
	coreingestion "github.com/jinford/spec-rag/internal/core/ingestion"
	"github.com/jinford/spec-rag/internal/core/query"
	coresearch "github.com/jinford/spec-rag/internal/core/search"
	"github.com/jinford/spec-rag/internal/infra/filesystem"
	"github.com/jinford/spec-rag/internal/infra/openai"
	"github.com/jinford/spec-rag/internal/infra/pdf"
	"github.com/jinford/spec-rag/internal/infra/postgres"
	"github.com/jinford/spec-rag/internal/infra/tokenizer"
	"github.com/jinford/spec-rag/internal/platform/config"
	"github.com/jinford/spec-rag/internal/platform/database"
)

// ServiceContainer はアプリケーションの依存関係を保持する。
type ServiceContainer struct {
	IngestService   *coreingestion.IngestService
	SearchService   *coresearch.SearchService
	AskService      *coreask.AskService
	EmbeddingClient *embedding.Client
	RateLimiter     *embedding.RateLimiter
	QueryCache      *embedding.Cache
	Scanner         *filesystem.Scanner

	cfg      *config.Config
	logger   *slog.Logger
	database *database.Database
}

type containerOptions struct {
	logger            *slog.Logger
	embeddingProvider embedding.Provider
	llmClient         coreask.LLMClient
	tokenCounter      chunk.TokenCounter
	textExtractor     coreingestion.TextExtractor
	blobStore         coreingestion.BlobStore
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbeddingProvider は埋め込みプロバイダを差し替える
func WithContainerEmbeddingProvider(provider embedding.Provider) ContainerOption {
	return func(opts *containerOptions) {
		opts.embeddingProvider = provider
	}
}

// WithContainerLLMClient は LLM クライアントを差し替える
func WithContainerLLMClient(client coreask.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// WithContainerTokenCounter は TokenCounter を差し替える
func WithContainerTokenCounter(counter chunk.TokenCounter) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokenCounter = counter
	}
}

// WithContainerTextExtractor はテキスト抽出器を差し替える
func WithContainerTextExtractor(extractor coreingestion.TextExtractor) ContainerOption {
	return func(opts *containerOptions) {
		opts.textExtractor = extractor
	}
}

// WithContainerBlobStore は原本の保存先を差し替える
func WithContainerBlobStore(store coreingestion.BlobStore) ContainerOption {
	return func(opts *containerOptions) {
		opts.blobStore = store
	}
}

// NewContainer は設定からコンテナを生成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	db, err := database.New(ctx, database.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
	}

	c, err := NewContainerWithDB(cfg, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewContainerWithDB は既存の Database を受け取りコンテナを生成する。
func NewContainerWithDB(cfg *config.Config, db *database.Database, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	// Embedding Provider (OpenAI)
	provider := options.embeddingProvider
	if provider == nil {
		embedder, err := openai.NewEmbedder(
			cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
			openai.WithEmbeddingRequestOptions(openAIRequestOptions(cfg)...),
		)
		if err != nil {
			return nil, fmt.Errorf("OpenAI Embedder 初期化に失敗しました: %w", err)
		}
		provider = embedder
	}
	if provider.Dimension() != cfg.OpenAI.EmbeddingDimension {
		return nil, fmt.Errorf("埋め込み次元が設定と一致しません: provider=%d, config=%d", provider.Dimension(), cfg.OpenAI.EmbeddingDimension)
	}

	// 埋め込みクライアントはプロセス内で1つのレート制限を共有する
	limiter := embedding.NewRateLimiter(cfg.Embedding.RequestsPerMinute, cfg.Embedding.MaxInFlight)
	embeddingClient := embedding.NewClient(provider,
		embedding.WithLimiter(limiter),
		embedding.WithMaxRetries(cfg.Embedding.MaxRetries),
		embedding.WithBackoff(cfg.Embedding.BaseBackoff, cfg.Embedding.MaxBackoff),
		embedding.WithGroupSize(cfg.Embedding.GroupSize),
		embedding.WithGroupPause(cfg.Embedding.GroupPause),
		embedding.WithClientLogger(logger),
	)
	queryCache := embedding.NewCache(embeddingClient, embedding.NewLRUStore(cfg.Cache.Size, cfg.Cache.TTL))

	// LLMClient (OpenAI)
	llmClient := options.llmClient
	if llmClient == nil {
		client, err := openai.NewClient(
			cfg.OpenAI.APIKey,
			openai.WithModel(cfg.OpenAI.LLMModel),
			openai.WithTemperature(cfg.OpenAI.Temperature),
			openai.WithMaxTokens(cfg.OpenAI.MaxTokens),
			openai.WithClientLogger(logger),
			openai.WithRequestOptions(openAIRequestOptions(cfg)...),
		)
		if err != nil {
			return nil, fmt.Errorf("OpenAI LLMクライアント初期化に失敗しました: %w", err)
		}
		llmClient = client
	}

	// Chunker / TokenCounter
	tokenCounter := options.tokenCounter
	if tokenCounter == nil {
		counter, err := tokenizer.NewCounter(tokenizer.DefaultEncoding)
		if err != nil {
			return nil, fmt.Errorf("TokenCounter 初期化に失敗しました: %w", err)
		}
		tokenCounter = counter
	}
	chunker, err := chunk.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap,
		chunk.WithTokenCounter(tokenCounter),
		chunk.WithChunkerLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("Chunker 初期化に失敗しました: %w", err)
	}

	// BlobStore / TextExtractor
	blobStore := options.blobStore
	if blobStore == nil {
		store, err := filesystem.NewBlobStore(cfg.Storage.BlobDir)
		if err != nil {
			return nil, fmt.Errorf("BlobStore 初期化に失敗しました: %w", err)
		}
		blobStore = store
	}
	extractor := options.textExtractor
	if extractor == nil {
		extractor = pdf.NewExtractor(pdf.WithExtractorLogger(logger))
	}

	// Repository (PostgreSQL)
	documentRepo := postgres.NewDocumentRepository(db.Pool)
	chunkRepo := postgres.NewChunkRepository(database.NewTransactionProvider(db.Pool))
	searchRepo := postgres.NewSearchRepository(db.Pool)

	// IngestService
	ingestService := coreingestion.NewIngestService(
		documentRepo,
		chunkRepo,
		blobStore,
		extractor,
		embeddingClient,
		chunker,
		coreingestion.WithIngestLogger(logger),
		coreingestion.WithIngestPipelineConfig(&coreingestion.PipelineConfig{
			EmbeddingConcurrency: cfg.Embedding.Concurrency,
			DocumentWorkerCount:  cfg.Ingestion.DocumentWorkers,
		}),
	)

	// SearchService
	preprocessor := query.NewPreprocessor(
		query.WithExactMatchWeights(query.SearchWeights{BM25: cfg.Search.ExactBM25Weight, Vector: cfg.Search.ExactVectorWeight}),
		query.WithSemanticWeights(query.SearchWeights{BM25: cfg.Search.SemanticBM25Weight, Vector: cfg.Search.SemanticVectorWeight}),
	)
	searchOpts := []coresearch.SearchServiceOption{
		coresearch.WithSearchLogger(logger),
		coresearch.WithPreprocessor(preprocessor),
		coresearch.WithMinSimilarity(cfg.Search.MinSimilarity),
	}
	if cfg.Search.EnableEnhancement {
		searchOpts = append(searchOpts, coresearch.WithEnhancer(query.NewEnhancer(query.WithEnhancerLogger(logger))))
	}
	searchService := coresearch.NewSearchService(searchRepo, queryCache, searchOpts...)

	// AskService
	askService := coreask.NewAskService(searchService, documentRepo, llmClient,
		coreask.WithAskLogger(logger),
		coreask.WithMatchCount(cfg.Search.MatchCount),
	)

	return &ServiceContainer{
		IngestService:   ingestService,
		SearchService:   searchService,
		AskService:      askService,
		EmbeddingClient: embeddingClient,
		RateLimiter:     limiter,
		QueryCache:      queryCache,
		Scanner:         filesystem.NewScanner(filesystem.WithIgnoreFile(cfg.Storage.IgnoreFile)),
		cfg:             cfg,
		logger:          logger,
		database:        db,
	}, nil
}

// Migrate はスキーマと検索関数を作成する。
func (c *ServiceContainer) Migrate(ctx context.Context) error {
	return postgres.Migrate(ctx, c.database.Pool, c.cfg.OpenAI.EmbeddingDimension)
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c != nil && c.database != nil {
		c.database.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Config は設定を返す。
func (c *ServiceContainer) Config() *config.Config {
	if c == nil {
		return nil
	}
	return c.cfg
}

// Database はデータベースを返す。
func (c *ServiceContainer) Database() *database.Database {
	if c == nil {
		return nil
	}
	return c.database
}
