package search

import "context"

// Repository は検索ストアへのアクセスを抽象化する
type Repository interface {
	// FusedSearch は BM25 とベクトル類似度を同一候補集合で算出し、重み付き合計の降順で返す
	FusedSearch(ctx context.Context, params FusedSearchParams) ([]*HybridSearchResult, error)

	// VectorSearch はコサイン類似度が minSimilarity 以上のチャンクを類似度の降順で返す
	VectorSearch(ctx context.Context, embedding []float32, matchCount int, minSimilarity float64) ([]*SimilarityHit, error)

	// KeywordSearch は語彙検索のみを行う
	KeywordSearch(ctx context.Context, queryText string, matchCount int) ([]*KeywordHit, error)
}
