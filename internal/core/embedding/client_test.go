package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider はテスト用の Provider
type mockProvider struct {
	EmbedContentFunc func(ctx context.Context, text string) ([]float32, error)
	calls            atomic.Int64
}

func (m *mockProvider) EmbedContent(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.EmbedContentFunc != nil {
		return m.EmbedContentFunc(ctx, text)
	}
	return []float32{float32(len(text))}, nil
}

func (m *mockProvider) Dimension() int { return 1 }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(p Provider, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithBackoff(time.Millisecond, 4*time.Millisecond),
		WithGroupPause(0),
		WithClientLogger(newTestLogger()),
	}
	return NewClient(p, append(base, opts...)...)
}

func TestBackoffDelay(t *testing.T) {
	base := 2 * time.Second
	max := 32 * time.Second

	assert.Equal(t, 2*time.Second, BackoffDelay(base, max, 0))
	assert.Equal(t, 4*time.Second, BackoffDelay(base, max, 1))
	assert.Equal(t, 8*time.Second, BackoffDelay(base, max, 2))
	assert.Equal(t, 32*time.Second, BackoffDelay(base, max, 10))
	assert.Equal(t, 2*time.Second, BackoffDelay(base, max, -1))
}

func TestMaxRetryWait(t *testing.T) {
	assert.Equal(t, 14*time.Second, MaxRetryWait(2*time.Second, 32*time.Second, 3))
	assert.Equal(t, time.Duration(0), MaxRetryWait(2*time.Second, 32*time.Second, 0))
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "センチネル", err: fmt.Errorf("wrap: %w", ErrRateLimited), want: true},
		{name: "ステータス429", err: errors.New("POST: 429 Too Many Requests"), want: true},
		{name: "RESOURCE_EXHAUSTED", err: errors.New("rpc error: RESOURCE_EXHAUSTED"), want: true},
		{name: "quota", err: errors.New("Quota exceeded for metric"), want: true},
		{name: "認証エラー", err: errors.New("401 unauthorized"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimitError(tt.err))
		})
	}
}

func TestClient_Embed_Success(t *testing.T) {
	p := &mockProvider{}
	c := newTestClient(p)

	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5}, vec)
	assert.Equal(t, int64(1), p.calls.Load())
}

func TestClient_Embed_EmptyInput(t *testing.T) {
	c := newTestClient(&mockProvider{})
	_, err := c.Embed(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestClient_Embed_RetriesRateLimitThenSucceeds(t *testing.T) {
	var n atomic.Int64
	p := &mockProvider{
		EmbedContentFunc: func(ctx context.Context, text string) ([]float32, error) {
			if n.Add(1) <= 2 {
				return nil, ErrRateLimited
			}
			return []float32{1, 2}, nil
		},
	}
	c := newTestClient(p)

	vec, err := c.Embed(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
	assert.Equal(t, int64(3), p.calls.Load())
}

func TestClient_Embed_RateLimitExhausted(t *testing.T) {
	p := &mockProvider{
		EmbedContentFunc: func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("429 rate limit exceeded")
		},
	}
	c := newTestClient(p)

	_, err := c.Embed(context.Background(), "query")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIrrecoverable)
	// 初回 + リトライ3回
	assert.Equal(t, int64(DefaultMaxRetries+1), p.calls.Load())
}

func TestClient_Embed_NonRateLimitErrorIsNotRetried(t *testing.T) {
	p := &mockProvider{
		EmbedContentFunc: func(ctx context.Context, text string) ([]float32, error) {
			return nil, fmt.Errorf("upstream: %w", ErrTransientService)
		},
	}
	c := newTestClient(p)

	_, err := c.Embed(context.Background(), "query")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIrrecoverable)
	assert.ErrorIs(t, err, ErrTransientService)
	assert.Equal(t, int64(1), p.calls.Load())
}

func TestClient_Embed_CancelDuringBackoff(t *testing.T) {
	p := &mockProvider{
		EmbedContentFunc: func(ctx context.Context, text string) ([]float32, error) {
			return nil, ErrRateLimited
		},
	}
	c := newTestClient(p, WithBackoff(time.Hour, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Embed(ctx, "query")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(1), p.calls.Load())
}

func TestClient_Embed_PassesThroughLimiter(t *testing.T) {
	l := &countingLimiter{}
	c := newTestClient(&mockProvider{}, WithLimiter(l))

	_, err := c.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(1), l.waits.Load())
	assert.Equal(t, int64(1), l.releases.Load())
}

type countingLimiter struct {
	waits    atomic.Int64
	releases atomic.Int64
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits.Add(1)
	return nil
}

func (l *countingLimiter) Release() { l.releases.Add(1) }

func TestClient_EmbedBatch_PreservesOrder(t *testing.T) {
	p := &mockProvider{
		EmbedContentFunc: func(ctx context.Context, text string) ([]float32, error) {
			// 後ろの要素ほど早く終わるようにして順序の入れ替わりを誘発する
			time.Sleep(time.Duration(30-len(text)) * time.Millisecond / 10)
			return []float32{float32(len(text))}, nil
		},
	}
	c := newTestClient(p, WithGroupSize(4))

	texts := make([]string, 23)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0)
	}

	vectors, err := c.EmbedBatch(context.Background(), texts, 4)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, vec := range vectors {
		assert.Equal(t, []float32{float32(i + 1)}, vec, "index %d", i)
	}
}

func TestClient_EmbedBatch_AllOrNothing(t *testing.T) {
	p := &mockProvider{
		EmbedContentFunc: func(ctx context.Context, text string) ([]float32, error) {
			if text == "bad" {
				return nil, errors.New("invalid argument")
			}
			return []float32{1}, nil
		},
	}
	c := newTestClient(p, WithGroupSize(2))

	vectors, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c", "bad", "e"}, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIrrecoverable)
	assert.Nil(t, vectors)
}

func TestClient_EmbedBatch_Empty(t *testing.T) {
	c := newTestClient(&mockProvider{})
	vectors, err := c.EmbedBatch(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestClient_EmbedBatch_RespectsConcurrency(t *testing.T) {
	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	p := &mockProvider{
		EmbedContentFunc: func(ctx context.Context, text string) ([]float32, error) {
			mu.Lock()
			current++
			peak = max(peak, current)
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
			return []float32{0}, nil
		},
	}
	c := newTestClient(p, WithGroupSize(10))

	texts := make([]string, 30)
	for i := range texts {
		texts[i] = "text"
	}

	_, err := c.EmbedBatch(context.Background(), texts, 3)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, 3)
}

func TestClient_EmbedBatch_CanceledBetweenGroups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var n atomic.Int64
	p := &mockProvider{
		EmbedContentFunc: func(_ context.Context, text string) ([]float32, error) {
			if n.Add(1) == 2 {
				cancel()
			}
			return []float32{0}, nil
		},
	}
	c := newTestClient(p, WithGroupSize(2))

	_, err := c.EmbedBatch(ctx, []string{"a", "b", "c", "d", "e", "f"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(2), p.calls.Load())
}
