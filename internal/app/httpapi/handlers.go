package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jinford/spec-rag/internal/core/ask"
	"github.com/jinford/spec-rag/internal/core/ingestion"
	"github.com/jinford/spec-rag/internal/core/search"
)

// maxRequestBody はリクエストボディの上限
const maxRequestBody = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: Version})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, ask.PublicMessage(ask.ErrEmptyQuestion))
		return
	}

	answer, err := s.asker.Ask(r.Context(), req.Query)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ask.ErrEmptyQuestion):
			status = http.StatusBadRequest
		case errors.Is(err, ask.ErrTemporarilyUnavailable):
			status = http.StatusServiceUnavailable
		}
		s.logger.Error("chat failed", "status", status, "error", err)
		writeError(w, status, ask.PublicMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response: answer.Text,
		Sources:  toSourceResponses(answer.Citations),
		Strategy: answer.Strategy,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required.")
		return
	}
	if req.MatchCount < 0 || req.MatchCount > search.MaxMatchCount {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("match_count must be between 1 and %d.", search.MaxMatchCount))
		return
	}
	matchCount := req.MatchCount
	if matchCount == 0 {
		matchCount = s.matchCount
	}

	mode := req.Mode
	if mode == "" {
		mode = search.ModeHybrid
	}

	var resp searchResponse
	switch mode {
	case search.ModeHybrid:
		result, err := s.searcher.SearchWithDetails(r.Context(), req.Query, matchCount)
		if err != nil {
			s.writeSearchError(w, err)
			return
		}
		resp = searchResponse{
			Query:      result.Query,
			SearchText: result.SearchText,
			Mode:       mode,
			Strategy:   result.Strategy,
			Weights:    &weightsResponse{BM25: result.Weights.BM25, Vector: result.Weights.Vector},
			Results:    toSearchResults(result.Results),
		}
		if result.Enhancement != nil && result.Enhancement.Enhanced() {
			resp.Enhancement = &enhancementSummary{
				EnhancedQuery:     result.Enhancement.EnhancedQuery,
				StrategiesApplied: result.Enhancement.StrategiesApplied,
			}
		}
	case search.ModeBM25:
		results, err := s.searcher.SearchBM25(r.Context(), req.Query, matchCount)
		if err != nil {
			s.writeSearchError(w, err)
			return
		}
		resp = searchResponse{
			Query:    strings.TrimSpace(req.Query),
			Mode:     mode,
			Strategy: search.StrategyKeyword,
			Results:  toSearchResults(results),
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown search mode %q.", mode))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "Query is required.")
	case errors.Is(err, search.ErrSearchUnavailable):
		s.logger.Error("search unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Search is temporarily unavailable. Please try again later.")
	default:
		s.logger.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An internal error occurred.")
	}
}

func (s *Server) handleSearchStrategy(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required.")
		return
	}

	writeJSON(w, http.StatusOK, toStrategyResponse(s.searcher.DescribeStrategy(req.Query)))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.ListDocuments(r.Context())
	if err != nil {
		s.logger.Error("failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "An internal error occurred.")
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	doc, err := s.documents.GetDocument(r.Context(), id)
	if err != nil {
		s.writeDocumentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// handleIngestDocument は取り込みをバックグラウンドで開始し、202 を返す
// 進捗は文書のステータスで確認する
func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	doc, err := s.documents.GetDocument(r.Context(), id)
	if err != nil {
		s.writeDocumentError(w, err)
		return
	}
	if doc.Status == ingestion.StatusProcessing {
		s.writeDocumentError(w, ingestion.ErrAlreadyProcessing)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.documents.Ingest(ctx, id); err != nil {
			s.logger.Error("background ingestion failed", "documentID", id, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, ingestAcceptedResponse{
		DocumentID: id.String(),
		Status:     string(ingestion.StatusProcessing),
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.documents.Delete(r.Context(), id); err != nil {
		s.writeDocumentError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeDocumentError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ingestion.ErrDocumentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ingestion.ErrAlreadyProcessing):
		status = http.StatusConflict
	default:
		s.logger.Error("document operation failed", "error", err)
	}
	writeError(w, status, ingestion.PublicMessage(err))
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid document id.")
		return uuid.Nil, false
	}
	return id, true
}

// decodeJSON はボディを v に読み込む。失敗時は 422 を書き込み false を返す
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		msg := "Request body must be valid JSON."
		if errors.Is(err, io.EOF) {
			msg = "Request body is required."
		}
		writeError(w, http.StatusUnprocessableEntity, msg)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, errorResponse{Detail: detail})
}
