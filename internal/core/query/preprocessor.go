package query

import (
	"strings"
)

var (
	// DefaultExactMatchWeights はコードを含むクエリの重み
	DefaultExactMatchWeights = SearchWeights{BM25: 0.6, Vector: 0.4}

	// DefaultSemanticWeights はコードを含まないクエリの重み
	DefaultSemanticWeights = SearchWeights{BM25: 0.3, Vector: 0.7}
)

// Preprocessor はクエリからコードとキーワードを抽出し、検索の重みを決める
// 状態を持たないため並行に使用できる
type Preprocessor struct {
	exactWeights    SearchWeights
	semanticWeights SearchWeights
}

// PreprocessorOption は Preprocessor のオプション設定
type PreprocessorOption func(*Preprocessor)

// WithExactMatchWeights はコードを含むクエリの重みを設定する
func WithExactMatchWeights(w SearchWeights) PreprocessorOption {
	return func(p *Preprocessor) {
		p.exactWeights = w
	}
}

// WithSemanticWeights はコードを含まないクエリの重みを設定する
func WithSemanticWeights(w SearchWeights) PreprocessorOption {
	return func(p *Preprocessor) {
		p.semanticWeights = w
	}
}

// NewPreprocessor は新しい Preprocessor を作成する
// 重みは合計1に正規化され、不正な場合はデフォルト値になる
func NewPreprocessor(opts ...PreprocessorOption) *Preprocessor {
	p := &Preprocessor{
		exactWeights:    DefaultExactMatchWeights,
		semanticWeights: DefaultSemanticWeights,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.exactWeights = p.exactWeights.Normalize(DefaultExactMatchWeights)
	p.semanticWeights = p.semanticWeights.Normalize(DefaultSemanticWeights)
	return p
}

// Preprocess はクエリを解析する
func (p *Preprocessor) Preprocess(raw string) ProcessedQuery {
	codes := ExtractCodes(raw)

	pq := ProcessedQuery{
		Original:       raw,
		SemanticQuery:  strings.Join(strings.Fields(raw), " "),
		Keywords:       extractKeywords(raw),
		ExtractedCodes: codes,
	}
	pq.BoostExactMatch = pq.HasCodes()
	return pq
}

// SearchWeights は前処理結果に応じた重みを返す
func (p *Preprocessor) SearchWeights(pq ProcessedQuery) SearchWeights {
	if pq.BoostExactMatch {
		return p.exactWeights
	}
	return p.semanticWeights
}

// extractKeywords はストップワードを除いたトークンを出現順に返す
// コードは大文字、それ以外は小文字に揃える
func extractKeywords(text string) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, token := range tokenPattern.FindAllString(text, -1) {
		token = strings.TrimRight(token, "._/-")

		var keyword string
		switch {
		case isCode(token):
			keyword = strings.ToUpper(token)
		default:
			keyword = strings.ToLower(token)
			if _, stop := stopwords[keyword]; stop || len([]rune(keyword)) < 2 {
				continue
			}
		}

		if _, ok := seen[keyword]; ok {
			continue
		}
		seen[keyword] = struct{}{}
		keywords = append(keywords, keyword)
	}
	return keywords
}
