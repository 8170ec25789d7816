package query

import (
	"log/slog"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Enhancer は静的な知識表をもとにクエリへ語句を追記する
// 追記済みの語句は判定前にマスクするため、同じクエリに2回適用しても結果は変わらない
type Enhancer struct {
	// appendable は追記され得る語句（小文字・長い順）
	appendable []string
	logger     *slog.Logger
}

// EnhancerOption は Enhancer のオプション設定
type EnhancerOption func(*Enhancer)

// WithEnhancerLogger はロガーを設定する
func WithEnhancerLogger(logger *slog.Logger) EnhancerOption {
	return func(e *Enhancer) {
		e.logger = logger
	}
}

// NewEnhancer は新しい Enhancer を作成する
func NewEnhancer(opts ...EnhancerOption) *Enhancer {
	e := &Enhancer{
		appendable: collectAppendable(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ShouldEnhance は既知の規格番号・特性キーワード・UNS 番号のいずれかを含むかを返す
func (e *Enhancer) ShouldEnhance(raw string) bool {
	lower := strings.ToLower(raw)
	if len(e.documentCodes(ExtractCodes(lower))) > 0 {
		return true
	}
	if len(ExtractCodes(lower)[CodeClassUNS]) > 0 {
		return true
	}
	return len(detectProperties(lower)) > 0
}

// Enhance はクエリに製品種別・一般名・特性の展開語・セクション名を追記する
func (e *Enhancer) Enhance(raw string) EnhancementResult {
	base := strings.TrimSpace(raw)
	result := EnhancementResult{
		OriginalQuery: raw,
		EnhancedQuery: base,
	}
	if base == "" {
		return result
	}

	signal := e.mask(strings.ToLower(base))
	codes := ExtractCodes(signal)
	docCodes := e.documentCodes(codes)
	properties := detectProperties(signal)

	var additions []string
	present := func(term string) bool {
		haystack := strings.ToLower(base + " " + strings.Join(additions, " "))
		return strings.Contains(haystack, strings.ToLower(term))
	}
	add := func(term, strategy string) {
		if term == "" || present(term) {
			return
		}
		additions = append(additions, term)
		result.StrategiesApplied = append(result.StrategiesApplied, strategy)
	}

	for _, code := range docCodes {
		info := documentCatalog[code]
		result.DocumentHints = append(result.DocumentHints, newDocumentHint(code, info))
		add(info.productType, "product_type:"+code)
	}

	for _, uns := range codes[CodeClassUNS] {
		if name, ok := unsGrades[uns]; ok {
			add(name, "uns_grade:"+uns)
		}
	}

	for _, prop := range properties {
		add(preferredExpansion(prop), "property_expansion:"+prop)
	}

	// 対象文書が一意に定まる場合のみセクション名を追記する
	if len(docCodes) == 1 && len(properties) > 0 {
		if section, ok := sectionFor(docCodes[0], properties[0]); ok {
			add(section, "section_hint:"+docCodes[0])
		}
	}

	if len(additions) > 0 {
		result.EnhancedQuery = base + " " + strings.Join(additions, " ")
		e.logger.Debug("query enhanced",
			"original", raw,
			"enhanced", result.EnhancedQuery,
			"strategies", result.StrategiesApplied,
		)
	}

	return result
}

// documentCodes は抽出コードのうち文書表に存在するものを出現順に返す
// A790M のようなメートル版は基の規格番号に寄せる
func (e *Enhancer) documentCodes(codes map[CodeClass][]string) []string {
	seen := make(map[string]struct{})
	var result []string
	collect := func(code string) {
		code = strings.ToUpper(code)
		if _, ok := documentCatalog[code]; !ok {
			trimmed := strings.TrimSuffix(code, "M")
			if _, ok := documentCatalog[trimmed]; !ok {
				return
			}
			code = trimmed
		}
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		result = append(result, code)
	}

	for _, code := range codes[CodeClassStandard] {
		collect(code)
	}
	for _, spec := range codes[CodeClassSpecification] {
		if _, number, ok := strings.Cut(spec, " "); ok {
			collect(number)
		}
	}
	return result
}

// mask は追記され得る語句を空白で塗りつぶす
func (e *Enhancer) mask(lower string) string {
	for _, term := range e.appendable {
		for {
			idx := indexWord(lower, term)
			if idx < 0 {
				break
			}
			lower = lower[:idx] + strings.Repeat(" ", len(term)) + lower[idx+len(term):]
		}
	}
	return lower
}

func newDocumentHint(code string, info documentInfo) DocumentHint {
	sections := make([]string, len(info.sections))
	for i, s := range info.sections {
		sections[i] = s.name
	}
	return DocumentHint{
		Code:        code,
		ProductType: info.productType,
		Keywords:    append([]string(nil), info.keywords...),
		Sections:    sections,
	}
}

// detectProperties は特性キーワードを出現位置の順に返す
func detectProperties(lower string) []string {
	type hit struct {
		keyword string
		pos     int
	}
	var hits []hit
	for _, p := range propertyExpansions {
		if pos := indexWord(lower, p.keyword); pos >= 0 {
			hits = append(hits, hit{keyword: p.keyword, pos: pos})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	props := make([]string, len(hits))
	for i, h := range hits {
		props[i] = h.keyword
	}
	return props
}

func preferredExpansion(keyword string) string {
	for _, p := range propertyExpansions {
		if p.keyword != keyword {
			continue
		}
		for _, exp := range p.expansions {
			if strings.Contains(exp, "Requirements") || strings.Contains(exp, "Dimensions") {
				return exp
			}
		}
		if len(p.expansions) > 0 {
			return p.expansions[0]
		}
	}
	return ""
}

func sectionFor(code, property string) (string, bool) {
	for _, s := range documentCatalog[code].sections {
		for _, p := range s.properties {
			if p == property {
				return s.name, true
			}
		}
	}
	return "", false
}

// collectAppendable は追記され得る全語句を小文字・長い順で返す
func collectAppendable() []string {
	seen := make(map[string]struct{})
	var terms []string
	add := func(term string) {
		term = strings.ToLower(term)
		if term == "" {
			return
		}
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, info := range documentCatalog {
		add(info.productType)
		for _, s := range info.sections {
			add(s.name)
		}
	}
	for _, name := range unsGrades {
		add(name)
	}
	for _, p := range propertyExpansions {
		for _, exp := range p.expansions {
			add(exp)
		}
	}

	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i]) != len(terms[j]) {
			return len(terms[i]) > len(terms[j])
		}
		return terms[i] < terms[j]
	})
	return terms
}

// indexWord は単語境界で区切られた term の最初の位置を返す
func indexWord(s, term string) int {
	offset := 0
	for {
		idx := strings.Index(s[offset:], term)
		if idx < 0 {
			return -1
		}
		start := offset + idx
		end := start + len(term)
		if isBoundary(s, start, true) && isBoundary(s, end, false) {
			return start
		}
		offset = start + 1
	}
}

func isBoundary(s string, pos int, before bool) bool {
	var r rune
	if before {
		if pos == 0 {
			return true
		}
		r, _ = utf8.DecodeLastRuneInString(s[:pos])
	} else {
		if pos >= len(s) {
			return true
		}
		r, _ = utf8.DecodeRuneInString(s[pos:])
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
