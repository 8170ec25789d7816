package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jinford/spec-rag/internal/core/chunk"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	Database  DatabaseConfig
	OpenAI    OpenAIConfig
	Embedding EmbeddingConfig
	Chunking  ChunkingConfig
	Search    SearchConfig
	Cache     CacheConfig
	Storage   StorageConfig
	Ingestion IngestionConfig
	Server    ServerConfig
	Logging   LoggingConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// OpenAIConfig は OpenAI API 設定（Embeddings + LLM）
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string // 互換 API を使う場合のみ指定
	EmbeddingModel     string
	EmbeddingDimension int
	LLMModel           string
	Temperature        float64
	MaxTokens          int
}

// EmbeddingConfig は埋め込みクライアントのレート制限とリトライ設定
type EmbeddingConfig struct {
	RequestsPerMinute int
	MaxInFlight       int
	MaxRetries        int
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
	GroupSize         int
	GroupPause        time.Duration
	Concurrency       int
}

// ChunkingConfig はチャンク分割設定
type ChunkingConfig struct {
	Size    int
	Overlap int
}

// SearchConfig は検索設定
type SearchConfig struct {
	MatchCount           int
	MinSimilarity        float64
	ExactBM25Weight      float64
	ExactVectorWeight    float64
	SemanticBM25Weight   float64
	SemanticVectorWeight float64
	EnableEnhancement    bool
}

// CacheConfig はクエリ埋め込みキャッシュ設定
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// StorageConfig は文書原本の保存設定
type StorageConfig struct {
	BlobDir    string
	IgnoreFile string // 一括取り込み時に参照する除外パターンファイル名
}

// IngestionConfig は取り込み設定
type IngestionConfig struct {
	DocumentWorkers int
}

// ServerConfig は HTTP サーバ設定
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig はログ設定
type LoggingConfig struct {
	Level  string
	Format string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "specrag"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "specrag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			BaseURL:            getEnv("OPENAI_BASE_URL", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 768),
			LLMModel:           getEnv("OPENAI_LLM_MODEL", "gpt-4o-mini"),
			Temperature:        getEnvAsFloat("OPENAI_LLM_TEMPERATURE", 0),
			MaxTokens:          getEnvAsInt("OPENAI_LLM_MAX_TOKENS", 1024),
		},
		Embedding: EmbeddingConfig{
			RequestsPerMinute: getEnvAsInt("EMBEDDING_REQUESTS_PER_MINUTE", 60),
			MaxInFlight:       getEnvAsInt("EMBEDDING_MAX_IN_FLIGHT", 5),
			MaxRetries:        getEnvAsInt("EMBEDDING_MAX_RETRIES", 3),
			BaseBackoff:       getEnvAsDuration("EMBEDDING_BASE_BACKOFF", 2*time.Second),
			MaxBackoff:        getEnvAsDuration("EMBEDDING_MAX_BACKOFF", 32*time.Second),
			GroupSize:         getEnvAsInt("EMBEDDING_GROUP_SIZE", 10),
			GroupPause:        getEnvAsDuration("EMBEDDING_GROUP_PAUSE", 500*time.Millisecond),
			Concurrency:       getEnvAsInt("EMBEDDING_CONCURRENCY", 3),
		},
		Chunking: ChunkingConfig{
			Size:    getEnvAsInt("CHUNK_SIZE", 1000),
			Overlap: getEnvAsInt("CHUNK_OVERLAP", 200),
		},
		Search: SearchConfig{
			MatchCount:           getEnvAsInt("SEARCH_MATCH_COUNT", 5),
			MinSimilarity:        getEnvAsFloat("SEARCH_MIN_SIMILARITY", 0),
			ExactBM25Weight:      getEnvAsFloat("SEARCH_EXACT_BM25_WEIGHT", 0.6),
			ExactVectorWeight:    getEnvAsFloat("SEARCH_EXACT_VECTOR_WEIGHT", 0.4),
			SemanticBM25Weight:   getEnvAsFloat("SEARCH_SEMANTIC_BM25_WEIGHT", 0.3),
			SemanticVectorWeight: getEnvAsFloat("SEARCH_SEMANTIC_VECTOR_WEIGHT", 0.7),
			EnableEnhancement:    getEnvAsBool("SEARCH_ENABLE_ENHANCEMENT", true),
		},
		Cache: CacheConfig{
			Size: getEnvAsInt("QUERY_CACHE_SIZE", 1000),
			TTL:  getEnvAsDuration("QUERY_CACHE_TTL", time.Hour),
		},
		Storage: StorageConfig{
			BlobDir:    getEnv("BLOB_DIR", "/var/lib/spec-rag/blobs"),
			IgnoreFile: getEnv("INGEST_IGNORE_FILE", ".specragignore"),
		},
		Ingestion: IngestionConfig{
			DocumentWorkers: getEnvAsInt("INGEST_DOCUMENT_WORKERS", 2),
		},
		Server: ServerConfig{
			Addr:            getEnv("SERVER_ADDR", ":8000"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate は起動前に設定の整合性を検証します
func (c *Config) Validate() error {
	var errs []error

	if c.OpenAI.EmbeddingDimension <= 0 {
		errs = append(errs, fmt.Errorf("OPENAI_EMBEDDING_DIMENSION must be positive, got %d", c.OpenAI.EmbeddingDimension))
	}
	if err := chunk.ValidateParams(c.Chunking.Size, c.Chunking.Overlap); err != nil {
		errs = append(errs, err)
	}
	if c.Embedding.RequestsPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_REQUESTS_PER_MINUTE must be positive, got %d", c.Embedding.RequestsPerMinute))
	}
	if c.Embedding.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_MAX_RETRIES must not be negative, got %d", c.Embedding.MaxRetries))
	}
	if c.Search.MinSimilarity < -1 || c.Search.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("SEARCH_MIN_SIMILARITY must be within [-1, 1], got %v", c.Search.MinSimilarity))
	}
	for name, w := range map[string]float64{
		"SEARCH_EXACT_BM25_WEIGHT":      c.Search.ExactBM25Weight,
		"SEARCH_EXACT_VECTOR_WEIGHT":    c.Search.ExactVectorWeight,
		"SEARCH_SEMANTIC_BM25_WEIGHT":   c.Search.SemanticBM25Weight,
		"SEARCH_SEMANTIC_VECTOR_WEIGHT": c.Search.SemanticVectorWeight,
	} {
		if w < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", name, w))
		}
	}
	if c.Cache.Size <= 0 {
		errs = append(errs, fmt.Errorf("QUERY_CACHE_SIZE must be positive, got %d", c.Cache.Size))
	}
	if strings.TrimSpace(c.Storage.BlobDir) == "" {
		errs = append(errs, errors.New("BLOB_DIR is required"))
	}

	return errors.Join(errs...)
}

// LogLevel は Logging.Level を slog.Level に変換します
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します（例: "500ms", "2s"）
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
