package query

// CodeClass は抽出する規格コードの種別
type CodeClass string

const (
	// CodeClassStandard は A790 や SA106 のような規格番号
	CodeClassStandard CodeClass = "standard"

	// CodeClassUNS は S32205 のような UNS 番号
	CodeClassUNS CodeClass = "uns"

	// CodeClassSpecification は "ASTM A790" や "API 5L" のように発行団体を伴う規格
	CodeClassSpecification CodeClass = "specification"
)

// ProcessedQuery は前処理済みのクエリ
type ProcessedQuery struct {
	// Original は入力されたクエリそのもの
	Original string

	// SemanticQuery はベクトル検索に使う空白正規化済みのクエリ
	SemanticQuery string

	// Keywords はストップワードを除いたキーワードとコード
	Keywords []string

	// ExtractedCodes は種別ごとの抽出コード（大文字・重複なし）
	ExtractedCodes map[CodeClass][]string

	// BoostExactMatch はいずれかのコードが抽出された場合に true
	BoostExactMatch bool
}

// HasCodes はコードが1件以上抽出されたかを返す
func (p ProcessedQuery) HasCodes() bool {
	for _, codes := range p.ExtractedCodes {
		if len(codes) > 0 {
			return true
		}
	}
	return false
}

// SearchWeights はハイブリッド検索の重み
type SearchWeights struct {
	BM25   float64
	Vector float64
}

// Normalize は合計が1になるように正規化する
// 合計が0以下の場合は fallback を返す
func (w SearchWeights) Normalize(fallback SearchWeights) SearchWeights {
	if w.BM25 < 0 || w.Vector < 0 {
		return fallback
	}
	sum := w.BM25 + w.Vector
	if sum <= 0 {
		return fallback
	}
	return SearchWeights{BM25: w.BM25 / sum, Vector: w.Vector / sum}
}

// EnhancementResult はクエリ拡張の結果
type EnhancementResult struct {
	OriginalQuery     string
	EnhancedQuery     string
	DocumentHints     []DocumentHint
	StrategiesApplied []string
}

// Enhanced は拡張が行われたかを返す
func (r EnhancementResult) Enhanced() bool {
	return len(r.StrategiesApplied) > 0
}

// DocumentHint はクエリ中の規格に対応する文書の情報
type DocumentHint struct {
	Code        string
	ProductType string
	Keywords    []string
	Sections    []string
}
