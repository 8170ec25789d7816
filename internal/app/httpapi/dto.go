package httpapi

import (
	"time"

	"github.com/jinford/spec-rag/internal/core/ask"
	"github.com/jinford/spec-rag/internal/core/ingestion"
	"github.com/jinford/spec-rag/internal/core/query"
	"github.com/jinford/spec-rag/internal/core/search"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	Response string           `json:"response"`
	Sources  []sourceResponse `json:"sources"`
	Strategy string           `json:"strategy,omitempty"`
}

type sourceResponse struct {
	Ref             int     `json:"ref"`
	DocumentID      string  `json:"document_id"`
	Document        string  `json:"document"`
	ChunkID         string  `json:"chunk_id"`
	Page            int     `json:"page"`
	CharOffsetStart *int    `json:"char_offset_start"`
	CharOffsetEnd   *int    `json:"char_offset_end"`
	Score           float64 `json:"score"`
}

type searchRequest struct {
	Query      string      `json:"query"`
	MatchCount int         `json:"match_count"`
	Mode       search.Mode `json:"mode"`
}

type searchResponse struct {
	Query       string              `json:"query"`
	SearchText  string              `json:"search_text,omitempty"`
	Mode        search.Mode         `json:"mode"`
	Strategy    search.Strategy     `json:"strategy"`
	Weights     *weightsResponse    `json:"weights,omitempty"`
	Enhancement *enhancementSummary `json:"enhancement,omitempty"`
	Results     []searchResult      `json:"results"`
}

type searchResult struct {
	ID              string  `json:"id"`
	DocumentID      string  `json:"document_id"`
	Content         string  `json:"content"`
	PageNumber      int     `json:"page_number"`
	CharOffsetStart *int    `json:"char_offset_start"`
	CharOffsetEnd   *int    `json:"char_offset_end"`
	BM25Score       float64 `json:"bm25_score"`
	VectorScore     float64 `json:"vector_score"`
	CombinedScore   float64 `json:"combined_score"`
}

type weightsResponse struct {
	BM25   float64 `json:"bm25_weight"`
	Vector float64 `json:"vector_weight"`
}

type enhancementSummary struct {
	EnhancedQuery     string   `json:"enhanced_query"`
	StrategiesApplied []string `json:"strategies_applied"`
}

type strategyRequest struct {
	Query string `json:"query"`
}

type strategyResponse struct {
	Query             string                       `json:"query"`
	SemanticQuery     string                       `json:"semantic_query"`
	Keywords          []string                     `json:"keywords"`
	ExtractedCodes    map[query.CodeClass][]string `json:"extracted_codes"`
	BoostExactMatch   bool                         `json:"boost_exact_match"`
	Weights           weightsResponse              `json:"weights"`
	Enhanced          bool                         `json:"enhanced"`
	EnhancedQuery     string                       `json:"enhanced_query"`
	StrategiesApplied []string                     `json:"strategies_applied"`
	DocumentHints     []documentHintResponse       `json:"document_hints"`
}

type documentHintResponse struct {
	Code        string   `json:"code"`
	ProductType string   `json:"product_type"`
	Keywords    []string `json:"keywords"`
	Sections    []string `json:"sections"`
}

type documentResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	PageCount    int       `json:"page_count"`
	ChunkCount   int       `json:"chunk_count"`
	ErrorMessage *string   `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ingestAcceptedResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

func toSourceResponses(citations []ask.Citation) []sourceResponse {
	out := make([]sourceResponse, 0, len(citations))
	for _, c := range citations {
		out = append(out, sourceResponse{
			Ref:             c.Ref,
			DocumentID:      c.DocumentID.String(),
			Document:        c.DocumentName,
			ChunkID:         c.ChunkID.String(),
			Page:            c.PageNumber,
			CharOffsetStart: c.CharOffsetStart,
			CharOffsetEnd:   c.CharOffsetEnd,
			Score:           c.Score,
		})
	}
	return out
}

func toSearchResults(results []*search.HybridSearchResult) []searchResult {
	out := make([]searchResult, 0, len(results))
	for _, r := range results {
		out = append(out, searchResult{
			ID:              r.ID.String(),
			DocumentID:      r.DocumentID.String(),
			Content:         r.Content,
			PageNumber:      r.PageNumber,
			CharOffsetStart: r.CharOffsetStart,
			CharOffsetEnd:   r.CharOffsetEnd,
			BM25Score:       r.BM25Score,
			VectorScore:     r.VectorScore,
			CombinedScore:   r.CombinedScore,
		})
	}
	return out
}

func toStrategyResponse(d search.StrategyDescription) strategyResponse {
	hints := make([]documentHintResponse, 0, len(d.DocumentHints))
	for _, h := range d.DocumentHints {
		hints = append(hints, documentHintResponse{
			Code:        h.Code,
			ProductType: h.ProductType,
			Keywords:    h.Keywords,
			Sections:    h.Sections,
		})
	}
	return strategyResponse{
		Query:             d.Query,
		SemanticQuery:     d.SemanticQuery,
		Keywords:          d.Keywords,
		ExtractedCodes:    d.ExtractedCodes,
		BoostExactMatch:   d.BoostExactMatch,
		Weights:           weightsResponse{BM25: d.Weights.BM25, Vector: d.Weights.Vector},
		Enhanced:          d.Enhanced,
		EnhancedQuery:     d.EnhancedQuery,
		StrategiesApplied: d.StrategiesApplied,
		DocumentHints:     hints,
	}
}

func toDocumentResponse(d *ingestion.Document) documentResponse {
	return documentResponse{
		ID:           d.ID.String(),
		Name:         d.Name,
		Status:       string(d.Status),
		PageCount:    d.PageCount,
		ChunkCount:   d.ChunkCount,
		ErrorMessage: d.ErrorMessage,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
