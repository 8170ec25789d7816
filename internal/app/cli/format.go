package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jinford/spec-rag/internal/core/ask"
	"github.com/jinford/spec-rag/internal/core/ingestion"
	"github.com/jinford/spec-rag/internal/core/search"
)

const snippetLength = 120

func printDocuments(w io.Writer, docs []*ingestion.Document) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tPAGES\tCHUNKS\tUPDATED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			d.ID, d.Name, d.Status, d.PageCount, d.ChunkCount, d.UpdatedAt.Format("2006-01-02 15:04:05"))
		if d.ErrorMessage != nil {
			fmt.Fprintf(tw, "\t  error: %s\t\t\t\t\n", *d.ErrorMessage)
		}
	}
	tw.Flush()
}

// printIngestResults は取り込み結果を表示し、失敗件数を返す
func printIngestResults(w io.Writer, results []*ingestion.IngestResult) int {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "✗ %s: %s\n", r.DocumentID, ingestion.PublicMessage(r.Err))
			continue
		}
		fmt.Fprintf(w, "✓ %s: %d pages, %d chunks (%s)\n",
			r.DocumentID, r.PageCount, r.ChunkCount, r.Duration.Round(1e6))
	}
	fmt.Fprintf(w, "ingested %d/%d documents\n", len(results)-failed, len(results))
	return failed
}

func printSearchResults(w io.Writer, strategy search.Strategy, results []*search.HybridSearchResult) {
	fmt.Fprintf(w, "strategy: %s, %d results\n", strategy, len(results))
	for i, r := range results {
		fmt.Fprintf(w, "\n[%d] document=%s page=%d%s score=%.4f (bm25=%.4f vector=%.4f)\n",
			i+1, r.DocumentID, r.PageNumber, formatOffsets(r.CharOffsetStart, r.CharOffsetEnd),
			r.CombinedScore, r.BM25Score, r.VectorScore)
		fmt.Fprintf(w, "    %s\n", snippet(r.Content))
	}
}

func printStrategy(w io.Writer, d search.StrategyDescription) {
	fmt.Fprintf(w, "query:          %s\n", d.Query)
	fmt.Fprintf(w, "semantic query: %s\n", d.SemanticQuery)
	fmt.Fprintf(w, "keywords:       %s\n", strings.Join(d.Keywords, ", "))
	for class, codes := range d.ExtractedCodes {
		fmt.Fprintf(w, "codes[%s]: %s\n", class, strings.Join(codes, ", "))
	}
	fmt.Fprintf(w, "exact match:    %t\n", d.BoostExactMatch)
	fmt.Fprintf(w, "weights:        bm25=%.2f vector=%.2f\n", d.Weights.BM25, d.Weights.Vector)
	if d.Enhanced {
		fmt.Fprintf(w, "enhanced query: %s\n", d.EnhancedQuery)
		fmt.Fprintf(w, "strategies:     %s\n", strings.Join(d.StrategiesApplied, ", "))
	}
	for _, h := range d.DocumentHints {
		fmt.Fprintf(w, "hint: %s (%s) sections=%s\n", h.Code, h.ProductType, strings.Join(h.Sections, ", "))
	}
}

func printAnswer(w io.Writer, answer *ask.Answer, showSources bool) {
	fmt.Fprintln(w, answer.Text)
	if !showSources || len(answer.Citations) == 0 {
		return
	}

	fmt.Fprintf(w, "\nsources (%s):\n", answer.Strategy)
	for _, c := range answer.Citations {
		name := c.DocumentName
		if name == "" {
			name = c.DocumentID.String()
		}
		fmt.Fprintf(w, "[%d] %s p.%d%s score=%.4f\n",
			c.Ref, name, c.PageNumber, formatOffsets(c.CharOffsetStart, c.CharOffsetEnd), c.Score)
	}
}

func formatOffsets(start, end *int) string {
	if start == nil || end == nil {
		return ""
	}
	return fmt.Sprintf(" (%d-%d)", *start, *end)
}

func snippet(content string) string {
	s := strings.Join(strings.Fields(content), " ")
	r := []rune(s)
	if len(r) <= snippetLength {
		return s
	}
	return string(r[:snippetLength]) + "..."
}
