package embedding

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store はクエリ文字列をキーにベクトルを保持するキャッシュ
type Store interface {
	Get(key string) ([]float32, bool)
	Put(key string, vector []float32)
	Evict(key string)
}

// LRUStore はサイズ上限と TTL を持つ Store
type LRUStore struct {
	lru *expirable.LRU[string, []float32]
}

var _ Store = (*LRUStore)(nil)

// NewLRUStore は新しい LRUStore を作成する
// ttl が0の場合はエントリを期限切れにしない
func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	if size <= 0 {
		size = 1
	}
	return &LRUStore{lru: expirable.NewLRU[string, []float32](size, nil, ttl)}
}

func (s *LRUStore) Get(key string) ([]float32, bool) { return s.lru.Get(key) }
func (s *LRUStore) Put(key string, vector []float32) { s.lru.Add(key, vector) }
func (s *LRUStore) Evict(key string)                 { s.lru.Remove(key) }

// Len は保持しているエントリ数を返す
func (s *LRUStore) Len() int { return s.lru.Len() }

// QueryEmbedder は1件のテキストを埋め込む
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Cache はクエリ埋め込みを Store にキャッシュする
// 同じクエリ文字列に対しては常に同じベクトルを返す
type Cache struct {
	embedder QueryEmbedder
	store    Store
	hits     atomic.Int64
	misses   atomic.Int64
}

var _ QueryEmbedder = (*Cache)(nil)

// NewCache は新しい Cache を作成する
func NewCache(embedder QueryEmbedder, store Store) *Cache {
	return &Cache{embedder: embedder, store: store}
}

// GetOrCompute はキャッシュにあればそれを返し、なければ計算して保存する
// 失敗した結果はキャッシュしない
func (c *Cache) GetOrCompute(ctx context.Context, query string) ([]float32, error) {
	if vec, ok := c.store.Get(query); ok {
		c.hits.Add(1)
		return vec, nil
	}
	c.misses.Add(1)

	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	c.store.Put(query, vec)
	return vec, nil
}

// Embed は GetOrCompute と同じ
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.GetOrCompute(ctx, text)
}

// Evict はエントリを明示的に破棄する
func (c *Cache) Evict(query string) {
	c.store.Evict(query)
}

// CacheStats はキャッシュのヒット数とミス数
type CacheStats struct {
	Hits   int64
	Misses int64
}

// Stats は現在の統計を返す
func (c *Cache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
