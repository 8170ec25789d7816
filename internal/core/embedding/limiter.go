package embedding

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter は埋め込み API 呼び出しの実行権限を管理する
// プロセス内で1つを共有し、全ての呼び出しがこれを通過する
type Limiter interface {
	Wait(ctx context.Context) error
	Release()
}

// RateLimiter は1分あたりのリクエスト数と同時実行数を制限する
type RateLimiter struct {
	// bucket はリクエスト数を制限するトークンバケット
	bucket *rate.Limiter

	// semaphore は並列実行を制御するセマフォ
	semaphore chan struct{}

	requestsPerMinute int

	// waiting は待機中のリクエスト数
	waiting atomic.Int64
}

var _ Limiter = (*RateLimiter)(nil)

// NewRateLimiter は新しい RateLimiter を作成する
// maxInFlight が0以下の場合は requestsPerMinute を同時実行数の上限とする
func NewRateLimiter(requestsPerMinute, maxInFlight int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	if maxInFlight <= 0 {
		maxInFlight = requestsPerMinute
	}

	limit := rate.Every(time.Minute / time.Duration(requestsPerMinute))
	return &RateLimiter{
		bucket:            rate.NewLimiter(limit, requestsPerMinute),
		semaphore:         make(chan struct{}, maxInFlight),
		requestsPerMinute: requestsPerMinute,
	}
}

// Wait はレート制限に従って待機し、実行権限を取得する
// context がキャンセルされた場合はエラーを返す
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.waiting.Add(1)
	defer rl.waiting.Add(-1)

	select {
	case rl.semaphore <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := rl.bucket.Wait(ctx); err != nil {
		<-rl.semaphore
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

// Release は実行権限を解放する
func (rl *RateLimiter) Release() {
	select {
	case <-rl.semaphore:
	default:
	}
}

// GetStatus は現在のレート制限状態を返す
func (rl *RateLimiter) GetStatus() RateLimiterStatus {
	return RateLimiterStatus{
		RequestsPerMinute: rl.requestsPerMinute,
		AvailableTokens:   int(rl.bucket.Tokens()),
		ActiveRequests:    len(rl.semaphore),
		MaxInFlight:       cap(rl.semaphore),
		WaitingRequests:   int(rl.waiting.Load()),
	}
}

// RateLimiterStatus はレート制限の状態を表す
type RateLimiterStatus struct {
	RequestsPerMinute int
	AvailableTokens   int
	ActiveRequests    int
	MaxInFlight       int
	WaitingRequests   int
}

// String はステータスを文字列で返す
func (s RateLimiterStatus) String() string {
	return fmt.Sprintf("RateLimiter[rpm=%d, tokens=%d, active=%d/%d, waiting=%d]",
		s.RequestsPerMinute, s.AvailableTokens, s.ActiveRequests, s.MaxInFlight, s.WaitingRequests)
}

// NoopLimiter は制限を行わない Limiter
type NoopLimiter struct{}

var _ Limiter = NoopLimiter{}

func (NoopLimiter) Wait(ctx context.Context) error { return ctx.Err() }
func (NoopLimiter) Release()                       {}
