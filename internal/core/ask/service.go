package ask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jinford/spec-rag/internal/core/ingestion"
	"github.com/jinford/spec-rag/internal/core/search"
)

// DefaultMatchCount は回答生成に使うチャンク数
const DefaultMatchCount = 5

// LLMClient は LLM 通信インターフェース
type LLMClient interface {
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
}

// Searcher は検索の実行インターフェース
type Searcher interface {
	SearchWithDetails(ctx context.Context, q string, matchCount int) (*search.Response, error)
}

// DocumentLookup は文書名の解決に使う
type DocumentLookup interface {
	ListDocumentsByIDs(ctx context.Context, ids []uuid.UUID) ([]*ingestion.Document, error)
}

// AskService は質問応答のビジネスロジックを提供する
type AskService struct {
	searcher   Searcher
	documents  DocumentLookup
	llm        LLMClient
	matchCount int
	logger     *slog.Logger
}

type AskServiceOption func(*AskService)

// WithAskLogger は AskService にロガーを設定する
func WithAskLogger(logger *slog.Logger) AskServiceOption {
	return func(s *AskService) {
		s.logger = logger
	}
}

// WithMatchCount は検索件数を設定する
func WithMatchCount(n int) AskServiceOption {
	return func(s *AskService) {
		s.matchCount = n
	}
}

// NewAskService は新しい AskService を作成する
func NewAskService(
	searcher Searcher,
	documents DocumentLookup,
	llm LLMClient,
	opts ...AskServiceOption,
) *AskService {
	svc := &AskService{
		searcher:   searcher,
		documents:  documents,
		llm:        llm,
		matchCount: DefaultMatchCount,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.matchCount <= 0 {
		svc.matchCount = DefaultMatchCount
	}

	return svc
}

// Ask は質問に対して RAG ベースで回答を生成する
// 関連チャンクが見つからない場合も LLM に問い合わせ、分からない旨の回答を得る
func (s *AskService) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	resp, err := s.searcher.SearchWithDetails(ctx, question, s.matchCount)
	if err != nil {
		if errors.Is(err, search.ErrSearchUnavailable) {
			return nil, fmt.Errorf("%w: %w", ErrTemporarilyUnavailable, err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	s.logger.Info("search completed",
		"strategy", resp.Strategy,
		"chunks", len(resp.Results),
	)

	names := s.documentNames(ctx, resp.Results)
	prompt := BuildAskPrompt(question, resp.Results, names)

	s.logger.Info("generating answer with LLM")
	text, err := s.llm.GenerateCompletion(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate answer: %w", ErrTemporarilyUnavailable, err)
	}

	citations := make([]Citation, 0, len(resp.Results))
	for i, r := range resp.Results {
		citations = append(citations, Citation{
			Ref:             i + 1,
			DocumentID:      r.DocumentID,
			DocumentName:    names[r.DocumentID.String()],
			ChunkID:         r.ID,
			PageNumber:      r.PageNumber,
			CharOffsetStart: r.CharOffsetStart,
			CharOffsetEnd:   r.CharOffsetEnd,
			Score:           r.CombinedScore,
		})
	}

	s.logger.Info("ask completed successfully",
		"answerLength", len(text),
		"citations", len(citations),
	)

	return &Answer{
		Text:      text,
		Citations: citations,
		Strategy:  string(resp.Strategy),
	}, nil
}

// documentNames は検索結果に含まれる文書の名前を引く
// 取得に失敗しても回答は続行する
func (s *AskService) documentNames(ctx context.Context, results []*search.HybridSearchResult) map[string]string {
	names := make(map[string]string)
	if len(results) == 0 || s.documents == nil {
		return names
	}

	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, r := range results {
		if _, ok := seen[r.DocumentID]; ok {
			continue
		}
		seen[r.DocumentID] = struct{}{}
		ids = append(ids, r.DocumentID)
	}

	docs, err := s.documents.ListDocumentsByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to resolve document names", "error", err)
		return names
	}
	for _, d := range docs {
		names[d.ID.String()] = d.Name
	}
	return names
}
