package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jinford/spec-rag/internal/core/query"
)

const (
	// DefaultMatchCount は件数未指定時の取得件数
	DefaultMatchCount = 5

	// MaxMatchCount は取得件数の上限
	MaxMatchCount = 50

	// DefaultMinSimilarity はベクトル検索フォールバック時の類似度下限
	DefaultMinSimilarity = 0.0
)

// Embedder はテキストの Embedding 生成インターフェース
type Embedder interface {
	// Embed は単一テキストの Embedding を生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchService はクエリ前処理・拡張・融合検索・フォールバックを束ねる
type SearchService struct {
	repo          Repository
	embedder      Embedder
	preprocessor  *query.Preprocessor
	enhancer      *query.Enhancer
	minSimilarity float64
	logger        *slog.Logger
}

// SearchServiceOption は SearchService のオプション設定
type SearchServiceOption func(*SearchService)

// WithSearchLogger はロガーを設定する
func WithSearchLogger(logger *slog.Logger) SearchServiceOption {
	return func(s *SearchService) {
		s.logger = logger
	}
}

// WithPreprocessor は前処理器を設定する
func WithPreprocessor(p *query.Preprocessor) SearchServiceOption {
	return func(s *SearchService) {
		s.preprocessor = p
	}
}

// WithEnhancer はクエリ拡張器を設定する。nil の場合は拡張しない
func WithEnhancer(e *query.Enhancer) SearchServiceOption {
	return func(s *SearchService) {
		s.enhancer = e
	}
}

// WithMinSimilarity はフォールバック時の類似度下限を設定する
func WithMinSimilarity(v float64) SearchServiceOption {
	return func(s *SearchService) {
		s.minSimilarity = v
	}
}

// NewSearchService は新しい SearchService を作成する
func NewSearchService(repo Repository, embedder Embedder, opts ...SearchServiceOption) *SearchService {
	s := &SearchService{
		repo:          repo,
		embedder:      embedder,
		preprocessor:  query.NewPreprocessor(),
		minSimilarity: DefaultMinSimilarity,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search はハイブリッド検索を実行し、結果のみを返す
func (s *SearchService) Search(ctx context.Context, q string, matchCount int) ([]*HybridSearchResult, error) {
	resp, err := s.SearchWithDetails(ctx, q, matchCount)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// SearchWithDetails はハイブリッド検索を実行し、採用した経路や重みも返す
// 融合検索が失敗した場合はベクトル検索にフォールバックし、両方失敗した場合のみエラーを返す
func (s *SearchService) SearchWithDetails(ctx context.Context, q string, matchCount int) (*Response, error) {
	start := time.Now()

	trimmed := strings.TrimSpace(q)
	if trimmed == "" {
		return nil, ErrEmptyQuery
	}
	matchCount = clampMatchCount(matchCount)

	processed := s.preprocessor.Preprocess(trimmed)
	weights := s.preprocessor.SearchWeights(processed)

	resp := &Response{
		Query:      trimmed,
		SearchText: processed.SemanticQuery,
		Weights:    weights,
	}

	if s.enhancer != nil && s.enhancer.ShouldEnhance(resp.SearchText) {
		enhancement := s.enhancer.Enhance(resp.SearchText)
		resp.Enhancement = &enhancement
		resp.SearchText = enhancement.EnhancedQuery
	}

	embedding, err := s.embedder.Embed(ctx, resp.SearchText)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %w", ErrSearchUnavailable, err)
	}

	results, strategy, err := s.retrieve(ctx, resp.SearchText, embedding, matchCount, weights)
	if err != nil {
		s.logger.Error("search failed",
			"query", trimmed,
			"latency", time.Since(start),
			"error", err,
		)
		return nil, err
	}
	resp.Results = results
	resp.Strategy = strategy

	s.logger.Info("search completed",
		"query", trimmed,
		"strategy", strategy,
		"boostExactMatch", processed.BoostExactMatch,
		"bm25Weight", weights.BM25,
		"vectorWeight", weights.Vector,
		"results", len(results),
		"latency", time.Since(start),
	)

	return resp, nil
}

// retrieve は融合検索を試み、失敗した場合はベクトル検索に切り替える
func (s *SearchService) retrieve(
	ctx context.Context,
	searchText string,
	embedding []float32,
	matchCount int,
	weights query.SearchWeights,
) ([]*HybridSearchResult, Strategy, error) {
	fused, fusedErr := s.repo.FusedSearch(ctx, FusedSearchParams{
		QueryText:      searchText,
		QueryEmbedding: embedding,
		MatchCount:     matchCount,
		BM25Weight:     weights.BM25,
		VectorWeight:   weights.Vector,
	})
	if fusedErr == nil {
		return sortByCombined(fused), StrategyFused, nil
	}

	s.logger.Warn("fused search failed, falling back to vector search",
		"capabilityUnavailable", errors.Is(fusedErr, ErrCapabilityUnavailable),
		"error", fusedErr,
	)

	hits, vectorErr := s.repo.VectorSearch(ctx, embedding, matchCount, s.minSimilarity)
	if vectorErr != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrSearchUnavailable, errors.Join(fusedErr, vectorErr))
	}

	return sortByCombined(fromSimilarityHits(hits)), StrategyVectorOnly, nil
}

// SearchBM25 は語彙検索のみを実行する
func (s *SearchService) SearchBM25(ctx context.Context, q string, matchCount int) ([]*HybridSearchResult, error) {
	trimmed := strings.TrimSpace(q)
	if trimmed == "" {
		return nil, ErrEmptyQuery
	}
	matchCount = clampMatchCount(matchCount)

	processed := s.preprocessor.Preprocess(trimmed)
	hits, err := s.repo.KeywordSearch(ctx, processed.SemanticQuery, matchCount)
	if err != nil {
		return nil, fmt.Errorf("%w: keyword search failed: %w", ErrSearchUnavailable, err)
	}

	return sortByCombined(fromKeywordHits(hits)), nil
}

// DescribeStrategy は検索を実行せずに前処理・拡張・重みの判断を返す
func (s *SearchService) DescribeStrategy(q string) StrategyDescription {
	trimmed := strings.TrimSpace(q)
	processed := s.preprocessor.Preprocess(trimmed)

	desc := StrategyDescription{
		Query:           trimmed,
		SemanticQuery:   processed.SemanticQuery,
		Keywords:        processed.Keywords,
		ExtractedCodes:  processed.ExtractedCodes,
		BoostExactMatch: processed.BoostExactMatch,
		Weights:         s.preprocessor.SearchWeights(processed),
		EnhancedQuery:   processed.SemanticQuery,
	}

	if s.enhancer != nil && s.enhancer.ShouldEnhance(processed.SemanticQuery) {
		enhancement := s.enhancer.Enhance(processed.SemanticQuery)
		desc.Enhanced = enhancement.Enhanced()
		desc.EnhancedQuery = enhancement.EnhancedQuery
		desc.StrategiesApplied = enhancement.StrategiesApplied
		desc.DocumentHints = enhancement.DocumentHints
	}

	return desc
}

// fromSimilarityHits はベクトル検索の結果をハイブリッド検索の形に揃える
// BM25 スコアは0、合計スコアは類似度とする
func fromSimilarityHits(hits []*SimilarityHit) []*HybridSearchResult {
	results := make([]*HybridSearchResult, len(hits))
	for i, h := range hits {
		results[i] = &HybridSearchResult{
			ID:              h.ID,
			DocumentID:      h.DocumentID,
			Content:         h.Content,
			PageNumber:      h.PageNumber,
			CharOffsetStart: h.CharOffsetStart,
			CharOffsetEnd:   h.CharOffsetEnd,
			BM25Score:       0,
			VectorScore:     h.Similarity,
			CombinedScore:   h.Similarity,
		}
	}
	return results
}

func fromKeywordHits(hits []*KeywordHit) []*HybridSearchResult {
	results := make([]*HybridSearchResult, len(hits))
	for i, h := range hits {
		results[i] = &HybridSearchResult{
			ID:              h.ID,
			DocumentID:      h.DocumentID,
			Content:         h.Content,
			PageNumber:      h.PageNumber,
			CharOffsetStart: h.CharOffsetStart,
			CharOffsetEnd:   h.CharOffsetEnd,
			BM25Score:       h.Rank,
			VectorScore:     0,
			CombinedScore:   h.Rank,
		}
	}
	return results
}

// sortByCombined は合計スコアの降順に並べる。同点はストアの順序を保つ
func sortByCombined(results []*HybridSearchResult) []*HybridSearchResult {
	slices.SortStableFunc(results, func(a, b *HybridSearchResult) int {
		switch {
		case a.CombinedScore > b.CombinedScore:
			return -1
		case a.CombinedScore < b.CombinedScore:
			return 1
		default:
			return 0
		}
	})
	return results
}

func clampMatchCount(n int) int {
	if n <= 0 {
		return DefaultMatchCount
	}
	return min(n, MaxMatchCount)
}
