package search

import (
	"github.com/google/uuid"

	"github.com/jinford/spec-rag/internal/core/query"
)

// Mode は検索方式
type Mode string

const (
	// ModeHybrid は BM25 とベクトル類似度を融合する検索
	ModeHybrid Mode = "hybrid"

	// ModeBM25 は語彙検索のみ
	ModeBM25 Mode = "bm25"
)

// Strategy は実際に結果を返した検索経路
type Strategy string

const (
	StrategyFused      Strategy = "fused"
	StrategyVectorOnly Strategy = "vector_only"
	StrategyKeyword    Strategy = "keyword"
)

// HybridSearchResult はハイブリッド検索の1件
type HybridSearchResult struct {
	ID              uuid.UUID
	DocumentID      uuid.UUID
	Content         string
	PageNumber      int
	CharOffsetStart *int
	CharOffsetEnd   *int
	BM25Score       float64
	VectorScore     float64
	CombinedScore   float64
}

// SimilarityHit はベクトル検索のみの結果
type SimilarityHit struct {
	ID              uuid.UUID
	DocumentID      uuid.UUID
	Content         string
	PageNumber      int
	CharOffsetStart *int
	CharOffsetEnd   *int
	Similarity      float64
}

// KeywordHit は語彙検索のみの結果
type KeywordHit struct {
	ID              uuid.UUID
	DocumentID      uuid.UUID
	Content         string
	PageNumber      int
	CharOffsetStart *int
	CharOffsetEnd   *int
	Rank            float64
}

// FusedSearchParams は融合検索のパラメータ
type FusedSearchParams struct {
	QueryText      string
	QueryEmbedding []float32
	MatchCount     int
	BM25Weight     float64
	VectorWeight   float64
}

// Response は検索結果と実行情報
type Response struct {
	Query       string
	SearchText  string
	Strategy    Strategy
	Weights     query.SearchWeights
	Results     []*HybridSearchResult
	Enhancement *query.EnhancementResult
}

// StrategyDescription は I/O を行わずに算出した検索方針
type StrategyDescription struct {
	Query             string
	SemanticQuery     string
	Keywords          []string
	ExtractedCodes    map[query.CodeClass][]string
	BoostExactMatch   bool
	Weights           query.SearchWeights
	Enhanced          bool
	EnhancedQuery     string
	StrategiesApplied []string
	DocumentHints     []query.DocumentHint
}
