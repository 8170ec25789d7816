package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jinford/spec-rag/internal/core/embedding"
)

const (
	// DefaultEmbeddingModel はモデル未指定時のデフォルトモデル
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultEmbeddingDimension は保存するベクトルの次元
	DefaultEmbeddingDimension = 768
)

// Embedder は OpenAI Embeddings API で1件のテキストをベクトルに変換する
// リトライとレート制限は core/embedding.Client が担う
type Embedder struct {
	client    openai.Client
	model     string
	dimension int
}

type embedderOptions struct {
	model      string
	dimension  int
	reqOptions []option.RequestOption
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		o.model = model
	}
}

// WithEmbeddingDimension はベクトル次元を上書きする
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// WithEmbeddingRequestOptions は SDK のリクエストオプションを追加する（BaseURL や HTTP クライアントなど）
func WithEmbeddingRequestOptions(opts ...option.RequestOption) EmbedderOption {
	return func(o *embedderOptions) {
		o.reqOptions = append(o.reqOptions, opts...)
	}
}

// NewEmbedder は新しい Embedder を作成する
func NewEmbedder(apiKey string, opts ...EmbedderOption) (*Embedder, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := embedderOptions{
		model:     DefaultEmbeddingModel,
		dimension: DefaultEmbeddingDimension,
	}
	for _, opt := range opts {
		opt(&options)
	}

	reqOptions := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		// SDK 側のリトライは無効化し、core/embedding.Client に任せる
		option.WithMaxRetries(0),
	}, options.reqOptions...)

	return &Embedder{
		client:    openai.NewClient(reqOptions...),
		model:     options.model,
		dimension: options.dimension,
	}, nil
}

// EmbedContent は単一テキストの Embedding を生成する
func (e *Embedder) EmbedContent(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, embedding.ErrEmptyInput
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", classifyError(err))
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}

	data := resp.Data[0].Embedding
	if e.dimension > 0 && len(data) != e.dimension {
		return nil, fmt.Errorf("unexpected embedding dimension: got %d, want %d", len(data), e.dimension)
	}

	vector := make([]float32, len(data))
	for i, v := range data {
		vector[i] = float32(v)
	}
	return vector, nil
}

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return e.model
}

// Dimension はベクトル次元数を返す
func (e *Embedder) Dimension() int {
	return e.dimension
}

// インターフェース実装の確認
var _ embedding.Provider = (*Embedder)(nil)
