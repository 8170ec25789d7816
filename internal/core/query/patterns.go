package query

import (
	"regexp"
	"strings"
)

type codePattern struct {
	class CodeClass
	re    *regexp.Regexp
	// normalize はマッチ部分を正規形に変換する
	normalize func(match []string) string
}

var codePatterns = []codePattern{
	{
		class: CodeClassStandard,
		re:    regexp.MustCompile(`(?i)\b[A-Z]{1,2}\d{3,4}M?\b`),
		normalize: func(m []string) string {
			return strings.ToUpper(m[0])
		},
	},
	{
		class: CodeClassUNS,
		re:    regexp.MustCompile(`(?i)\b[A-Z]\d{5}\b`),
		normalize: func(m []string) string {
			return strings.ToUpper(m[0])
		},
	},
	{
		class: CodeClassSpecification,
		re:    regexp.MustCompile(`(?i)\b(ASTM|ASME|API|AWS|AISI|NACE|ISO|EN|DIN|JIS)[\s-]+([A-Z]{0,2}\d+[A-Z0-9.]*)\b`),
		normalize: func(m []string) string {
			return strings.ToUpper(m[1]) + " " + strings.ToUpper(m[2])
		},
	},
}

// ExtractCodes はテキストから種別ごとにコードを抽出する
// 各種別内では出現順を保ち、重複を除く
func ExtractCodes(text string) map[CodeClass][]string {
	codes := make(map[CodeClass][]string)
	for _, p := range codePatterns {
		seen := make(map[string]struct{})
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			code := p.normalize(m)
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			codes[p.class] = append(codes[p.class], code)
		}
	}
	return codes
}

// isCode は単一トークンが規格番号または UNS 番号かを判定する
func isCode(token string) bool {
	for _, p := range codePatterns {
		if p.class == CodeClassSpecification {
			continue
		}
		if loc := p.re.FindStringIndex(token); loc != nil && loc[0] == 0 && loc[1] == len(token) {
			return true
		}
	}
	return false
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}._/-]*`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"can": {}, "do": {}, "does": {}, "for": {}, "from": {}, "how": {}, "i": {},
	"in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {}, "per": {},
	"should": {}, "tell": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"what": {}, "when": {}, "which": {}, "who": {}, "why": {}, "with": {},
	"me": {}, "please": {}, "about": {}, "there": {}, "their": {}, "was": {},
	"were": {}, "will": {}, "would": {}, "you": {}, "your": {},
}
