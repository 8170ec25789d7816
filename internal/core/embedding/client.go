package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxRetries はレート制限時の最大リトライ回数
	DefaultMaxRetries = 3

	// DefaultBaseBackoff はリトライ間隔の基準値
	DefaultBaseBackoff = 2 * time.Second

	// DefaultMaxBackoff はリトライ間隔の上限
	DefaultMaxBackoff = 32 * time.Second

	// DefaultGroupSize はバッチ処理でまとめて投入するテキスト数
	DefaultGroupSize = 10

	// DefaultGroupPause はグループ間の待機時間
	DefaultGroupPause = 500 * time.Millisecond

	// DefaultProgressInterval は進捗ログを出力する間隔（件数）
	DefaultProgressInterval = 50
)

// Provider は1件のテキストをベクトルに変換する外部サービス
type Provider interface {
	EmbedContent(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Client はレート制限とリトライを備えた埋め込みクライアント
type Client struct {
	provider         Provider
	limiter          Limiter
	maxRetries       int
	baseBackoff      time.Duration
	maxBackoff       time.Duration
	groupSize        int
	groupPause       time.Duration
	progressInterval int
	logger           *slog.Logger
}

// ClientOption は Client のオプション設定
type ClientOption func(*Client)

// WithLimiter は共有の Limiter を設定する
func WithLimiter(limiter Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithMaxRetries はレート制限時の最大リトライ回数を設定する
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBackoff はリトライ間隔の基準値と上限を設定する
func WithBackoff(base, max time.Duration) ClientOption {
	return func(c *Client) {
		c.baseBackoff = base
		c.maxBackoff = max
	}
}

// WithGroupSize はバッチのグループサイズを設定する
func WithGroupSize(size int) ClientOption {
	return func(c *Client) {
		c.groupSize = size
	}
}

// WithGroupPause はグループ間の待機時間を設定する
func WithGroupPause(d time.Duration) ClientOption {
	return func(c *Client) {
		c.groupPause = d
	}
}

// WithProgressInterval は進捗ログの出力間隔を設定する
func WithProgressInterval(n int) ClientOption {
	return func(c *Client) {
		c.progressInterval = n
	}
}

// WithClientLogger はロガーを設定する
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient は新しい Client を作成する
func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider:         provider,
		limiter:          NoopLimiter{},
		maxRetries:       DefaultMaxRetries,
		baseBackoff:      DefaultBaseBackoff,
		maxBackoff:       DefaultMaxBackoff,
		groupSize:        DefaultGroupSize,
		groupPause:       DefaultGroupPause,
		progressInterval: DefaultProgressInterval,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.groupSize <= 0 {
		c.groupSize = DefaultGroupSize
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	return c
}

// Dimension はベクトルの次元数を返す
func (c *Client) Dimension() int {
	return c.provider.Dimension()
}

// Embed は1件のテキストをベクトルに変換する
// レート制限エラーのみ指数バックオフでリトライし、それ以外は即座に返す
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := BackoffDelay(c.baseBackoff, c.maxBackoff, attempt-1)
			c.logger.Warn("embedding rate limited, retrying",
				"attempt", attempt,
				"maxRetries", c.maxRetries,
				"delay", delay,
			)
			if err := sleepContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrIrrecoverable, err)
			}
		}

		vec, err := c.call(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if !IsRateLimitError(err) {
			return nil, fmt.Errorf("%w: %w", ErrIrrecoverable, err)
		}
	}

	return nil, fmt.Errorf("%w: rate limit persisted after %d retries: %w", ErrIrrecoverable, c.maxRetries, lastErr)
}

func (c *Client) call(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	defer c.limiter.Release()

	return c.provider.EmbedContent(ctx, text)
}

// EmbedBatch は複数テキストをグループ単位で並列に埋め込む
// 結果は入力と同じ順序で返す。1件でも失敗した場合は部分結果を返さない
func (c *Client) EmbedBatch(ctx context.Context, texts []string, concurrency int) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([][]float32, len(texts))
	progress := newProgressTracker(len(texts), c.progressInterval, c.logger)

	for groupStart := 0; groupStart < len(texts); groupStart += c.groupSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("embedding batch canceled: %w", err)
		}

		if groupStart > 0 && c.groupPause > 0 {
			if err := sleepContext(ctx, c.groupPause); err != nil {
				return nil, fmt.Errorf("embedding batch canceled: %w", err)
			}
		}

		groupEnd := min(groupStart+c.groupSize, len(texts))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i := groupStart; i < groupEnd; i++ {
			g.Go(func() error {
				vec, err := c.Embed(gctx, texts[i])
				if err != nil {
					return fmt.Errorf("text %d: %w", i, err)
				}
				results[i] = vec
				progress.done()
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			c.logger.Error("embedding batch failed",
				"completed", progress.completed(),
				"total", len(texts),
				"error", err,
			)
			return nil, err
		}
	}

	return results, nil
}

// BackoffDelay は attempt 回目（0始まり）のリトライ待機時間 base*2^attempt を返す
func BackoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if max > 0 && delay >= max {
			return max
		}
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}

// MaxRetryWait はリトライ待機時間の合計上限を返す
func MaxRetryWait(base, max time.Duration, retries int) time.Duration {
	var total time.Duration
	for attempt := 0; attempt < retries; attempt++ {
		total += BackoffDelay(base, max, attempt)
	}
	return total
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// progressTracker は一定件数ごとに進捗をログ出力する
type progressTracker struct {
	total    int
	interval int
	count    atomic.Int64
	logger   *slog.Logger
}

func newProgressTracker(total, interval int, logger *slog.Logger) *progressTracker {
	return &progressTracker{total: total, interval: interval, logger: logger}
}

func (p *progressTracker) done() {
	n := p.count.Add(1)
	if p.interval <= 0 {
		return
	}
	if n%int64(p.interval) == 0 || int(n) == p.total {
		p.logger.Info("embedding progress", "completed", n, "total", p.total)
	}
}

func (p *progressTracker) completed() int {
	return int(p.count.Load())
}
