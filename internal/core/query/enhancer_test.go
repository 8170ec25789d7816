package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnhancer_ShouldEnhance(t *testing.T) {
	e := NewEnhancer()

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{name: "既知の規格番号", query: "A790 scope", want: true},
		{name: "特性キーワード", query: "what hardness is allowed", want: true},
		{name: "UNS番号", query: "S99999 anything", want: true},
		{name: "未知の規格番号", query: "A999 scope", want: false},
		{name: "一般的な質問", query: "how is steel made", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.ShouldEnhance(tt.query))
		})
	}
}

func TestEnhancer_Enhance_DocumentAndProperty(t *testing.T) {
	e := NewEnhancer()

	res := e.Enhance("What is the yield strength for A790?")

	assert.Equal(t, "What is the yield strength for A790?", res.OriginalQuery)
	assert.Contains(t, res.EnhancedQuery, "What is the yield strength for A790?")
	assert.Contains(t, res.EnhancedQuery, "duplex")
	assert.Contains(t, res.EnhancedQuery, "Tensile Requirements")
	assert.Contains(t, res.EnhancedQuery, "Table 3 Tensile and Hardness Requirements")

	require.Len(t, res.DocumentHints, 1)
	assert.Equal(t, "A790", res.DocumentHints[0].Code)
	assert.Equal(t, []string{
		"product_type:A790",
		"property_expansion:yield strength",
		"section_hint:A790",
	}, res.StrategiesApplied)
	assert.True(t, res.Enhanced())
}

func TestEnhancer_Enhance_UNSGrade(t *testing.T) {
	e := NewEnhancer()

	res := e.Enhance("S32750 pren")

	assert.Contains(t, res.EnhancedQuery, "super duplex 2507")
	assert.Contains(t, res.EnhancedQuery, "Chemical Requirements")
	assert.Equal(t, []string{"uns_grade:S32750", "property_expansion:pren"}, res.StrategiesApplied)
}

func TestEnhancer_Enhance_NoSectionHintForMultipleDocuments(t *testing.T) {
	e := NewEnhancer()

	res := e.Enhance("compare hardness of A790 and A789")

	require.Len(t, res.DocumentHints, 2)
	for _, s := range res.StrategiesApplied {
		assert.NotContains(t, s, "section_hint")
	}
}

func TestEnhancer_Enhance_MetricVariantAndSpecificationPrefix(t *testing.T) {
	e := NewEnhancer()

	res := e.Enhance("ASTM A312M wall thickness")

	require.Len(t, res.DocumentHints, 1)
	assert.Equal(t, "A312", res.DocumentHints[0].Code)
	assert.Contains(t, res.EnhancedQuery, "Permissible Variations in Dimensions")
}

func TestEnhancer_Enhance_DoesNotDuplicateExistingTerms(t *testing.T) {
	e := NewEnhancer()

	res := e.Enhance("A106 Tensile Requirements for tensile strength")

	assert.NotContains(t, res.StrategiesApplied, "property_expansion:tensile strength")
}

func TestEnhancer_Enhance_NothingToAdd(t *testing.T) {
	e := NewEnhancer()

	res := e.Enhance("  how is steel made  ")
	assert.Equal(t, "how is steel made", res.EnhancedQuery)
	assert.Empty(t, res.StrategiesApplied)
	assert.False(t, res.Enhanced())

	empty := e.Enhance("   ")
	assert.Equal(t, "", empty.EnhancedQuery)
}

func TestEnhancer_Enhance_Idempotent(t *testing.T) {
	e := NewEnhancer()

	queries := []string{
		"What is the yield strength for A790?",
		"S32205 chemical composition and heat treatment",
		"A106 A333 impact test",
		"ASTM A240 hardness tolerance",
		"outside diameter of A312M pipe",
		"super duplex 2507 S32750 pren",
		"general corrosion question",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			once := e.Enhance(q).EnhancedQuery
			twice := e.Enhance(once)
			assert.Equal(t, once, twice.EnhancedQuery)
			assert.Empty(t, twice.StrategiesApplied)
		})
	}
}
