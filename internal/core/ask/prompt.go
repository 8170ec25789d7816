package ask

import (
	"fmt"
	"strings"

	"github.com/jinford/spec-rag/internal/core/search"
)

// BuildAskPrompt は RAG 質問応答用のプロンプトを構築する
// names はチャンクの DocumentID から文書名を引くための表
func BuildAskPrompt(question string, chunks []*search.HybridSearchResult, names map[string]string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert material science and steel engineer.\n")
	sb.WriteString("Use the following pieces of retrieved context to answer the question.\n")
	sb.WriteString("If you don't know the answer, say that you don't know.\n")
	sb.WriteString("Use technical language but be concise.\n")
	sb.WriteString("Cite the context you rely on with its reference number, e.g. [1].\n\n")

	sb.WriteString("Context:\n")
	if len(chunks) == 0 {
		sb.WriteString("(no relevant context was found)\n\n")
	}
	for i, chunk := range chunks {
		name := names[chunk.DocumentID.String()]
		if name == "" {
			name = chunk.DocumentID.String()
		}
		sb.WriteString(fmt.Sprintf("[%d] %s, page %d (score %.3f)\n", i+1, name, chunk.PageNumber, chunk.CombinedScore))
		sb.WriteString(chunk.Content)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n")

	return sb.String()
}
