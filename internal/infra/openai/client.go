package openai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/spec-rag/internal/core/ask"
	"github.com/jinford/spec-rag/internal/core/embedding"
)

const (
	// DefaultModel はデフォルトで使用するOpenAIモデル
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

// Client は OpenAI Chat Completions API を使用した LLM クライアント実装
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	logger      *slog.Logger
}

type clientOptions struct {
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	logger      *slog.Logger
	reqOptions  []option.RequestOption
}

// ClientOption は Client のオプション設定
type ClientOption func(*clientOptions)

// WithModel はモデル名を設定する
func WithModel(model string) ClientOption {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithTemperature は生成時の temperature を設定する
func WithTemperature(t float64) ClientOption {
	return func(o *clientOptions) {
		o.temperature = t
	}
}

// WithMaxTokens は生成トークン数の上限を設定する
func WithMaxTokens(n int) ClientOption {
	return func(o *clientOptions) {
		o.maxTokens = n
	}
}

// WithTimeout はAPIコールのタイムアウトを設定する
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithRetry はレート制限時のリトライ回数と待機時間を設定する
func WithRetry(maxRetries int, base, max time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.maxRetries = maxRetries
		o.baseBackoff = base
		o.maxBackoff = max
	}
}

// WithClientLogger はロガーを設定する
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithRequestOptions は SDK のリクエストオプションを追加する（BaseURL や HTTP クライアントなど）
func WithRequestOptions(opts ...option.RequestOption) ClientOption {
	return func(o *clientOptions) {
		o.reqOptions = append(o.reqOptions, opts...)
	}
}

// NewClient は新しい Client を作成する
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := clientOptions{
		model:       DefaultModel,
		timeout:     DefaultTimeout,
		maxRetries:  MaxRetries,
		baseBackoff: BaseBackoff,
		maxBackoff:  MaxBackoff,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	reqOptions := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, options.reqOptions...)

	return &Client{
		client:      openai.NewClient(reqOptions...),
		model:       options.model,
		temperature: options.temperature,
		maxTokens:   options.maxTokens,
		timeout:     options.timeout,
		maxRetries:  options.maxRetries,
		baseBackoff: options.baseBackoff,
		maxBackoff:  options.maxBackoff,
		logger:      options.logger,
	}, nil
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

// GenerateCompletion はプロンプトから回答テキストを生成する
// レート制限のみ Exponential Backoff でリトライする
func (c *Client) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := embedding.BackoffDelay(c.baseBackoff, c.maxBackoff, attempt-1)
			c.logger.Warn("LLM がレート制限されたため待機してリトライします",
				"attempt", attempt,
				"wait", wait,
			)

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return "", fmt.Errorf("OpenAI API call failed: %w", classifyError(err))
		}

		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("%w: no completion choices returned", ErrEmptyResponse)
		}

		c.logger.Debug("LLM 応答を受信しました",
			"model", completion.Model,
			"tokens", completion.Usage.TotalTokens,
		)
		return completion.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, classifyError(lastErr))
}

// インターフェース実装の確認
var _ ask.LLMClient = (*Client)(nil)
