package query

// documentInfo は規格文書ごとの静的な知識
type documentInfo struct {
	productType string
	keywords    []string
	sections    []sectionInfo
}

// sectionInfo は文書内のセクション名と、そこに記載される特性
type sectionInfo struct {
	name       string
	properties []string
}

var (
	chemicalSection = sectionInfo{name: "Chemical Requirements", properties: []string{"chemical composition", "pren"}}
	tensileSection  = sectionInfo{name: "Tensile Requirements", properties: []string{"yield strength", "tensile strength", "elongation"}}
	hardnessSection = sectionInfo{name: "Hardness Requirements", properties: []string{"hardness"}}
	heatSection     = sectionInfo{name: "Heat Treatment Requirements", properties: []string{"heat treatment", "solution annealing"}}
	pipeDimensions  = sectionInfo{name: "Permissible Variations in Dimensions", properties: []string{"wall thickness", "outside diameter", "dimensions", "tolerance"}}
	hydroSection    = sectionInfo{name: "Hydrostatic Test Requirements", properties: []string{"hydrostatic"}}
	impactSection   = sectionInfo{name: "Impact Test Requirements", properties: []string{"impact test"}}
)

// documentCatalog は規格番号と文書情報の対応表
var documentCatalog = map[string]documentInfo{
	"A106": {
		productType: "seamless carbon steel pipe for high-temperature service",
		keywords:    []string{"carbon steel", "seamless", "high-temperature"},
		sections:    []sectionInfo{chemicalSection, tensileSection, heatSection, pipeDimensions, hydroSection},
	},
	"A312": {
		productType: "seamless and welded austenitic stainless steel pipe",
		keywords:    []string{"austenitic", "stainless steel", "304", "316"},
		sections:    []sectionInfo{chemicalSection, tensileSection, heatSection, pipeDimensions, hydroSection},
	},
	"A790": {
		productType: "seamless and welded ferritic/austenitic (duplex) stainless steel pipe",
		keywords:    []string{"duplex", "ferritic/austenitic", "2205", "super duplex"},
		sections: []sectionInfo{
			{name: "Table 1 Chemical Requirements", properties: chemicalSection.properties},
			{name: "Table 2 Heat Treatment", properties: heatSection.properties},
			{name: "Table 3 Tensile and Hardness Requirements", properties: []string{"yield strength", "tensile strength", "elongation", "hardness"}},
			pipeDimensions,
			hydroSection,
		},
	},
	"A789": {
		productType: "seamless and welded ferritic/austenitic (duplex) stainless steel tubing",
		keywords:    []string{"duplex", "tubing", "2205"},
		sections:    []sectionInfo{chemicalSection, heatSection, tensileSection, hardnessSection, pipeDimensions},
	},
	"A240": {
		productType: "chromium and chromium-nickel stainless steel plate, sheet and strip",
		keywords:    []string{"plate", "sheet", "strip", "stainless steel"},
		sections:    []sectionInfo{chemicalSection, tensileSection, hardnessSection},
	},
	"A182": {
		productType: "forged or rolled alloy and stainless steel pipe flanges and fittings",
		keywords:    []string{"flange", "forging", "fittings", "F51", "F53"},
		sections:    []sectionInfo{chemicalSection, heatSection, tensileSection, hardnessSection},
	},
	"A105": {
		productType: "carbon steel forgings for piping applications",
		keywords:    []string{"forging", "flange", "carbon steel"},
		sections:    []sectionInfo{chemicalSection, heatSection, tensileSection, hardnessSection},
	},
	"A335": {
		productType: "seamless ferritic alloy-steel pipe for high-temperature service",
		keywords:    []string{"P11", "P22", "P91", "chrome-moly"},
		sections:    []sectionInfo{chemicalSection, heatSection, tensileSection, hardnessSection, pipeDimensions},
	},
	"A516": {
		productType: "carbon steel pressure vessel plate for moderate- and lower-temperature service",
		keywords:    []string{"pressure vessel", "plate", "grade 70"},
		sections:    []sectionInfo{chemicalSection, tensileSection, heatSection, impactSection},
	},
	"A333": {
		productType: "seamless and welded steel pipe for low-temperature service",
		keywords:    []string{"low-temperature", "charpy", "impact"},
		sections:    []sectionInfo{chemicalSection, tensileSection, impactSection, pipeDimensions, hydroSection},
	},
	"A928": {
		productType: "ferritic/austenitic (duplex) stainless steel pipe electric fusion welded with addition of filler metal",
		keywords:    []string{"duplex", "welded", "filler metal"},
		sections:    []sectionInfo{chemicalSection, heatSection, tensileSection, hardnessSection, pipeDimensions},
	},
	"A815": {
		productType: "wrought ferritic, ferritic/austenitic and martensitic stainless steel piping fittings",
		keywords:    []string{"fittings", "duplex", "WP"},
		sections:    []sectionInfo{chemicalSection, heatSection, tensileSection, hardnessSection},
	},
}

// propertyExpansions は特性キーワードと追記候補の対応表
// 候補のうち "Requirements" または "Dimensions" を含むものを優先する
var propertyExpansions = []struct {
	keyword    string
	expansions []string
}{
	{keyword: "yield strength", expansions: []string{"0.2% offset", "Tensile Requirements"}},
	{keyword: "tensile strength", expansions: []string{"ultimate strength", "Tensile Requirements"}},
	{keyword: "elongation", expansions: []string{"percent elongation in 2 in.", "Tensile Requirements"}},
	{keyword: "hardness", expansions: []string{"Brinell Rockwell HRC HBW", "Hardness Requirements"}},
	{keyword: "chemical composition", expansions: []string{"carbon manganese chromium nickel molybdenum nitrogen", "Chemical Requirements"}},
	{keyword: "composition", expansions: []string{"Chemical Requirements"}},
	{keyword: "pren", expansions: []string{"pitting resistance equivalent number", "Chemical Requirements"}},
	{keyword: "heat treatment", expansions: []string{"solution annealing quench", "Heat Treatment Requirements"}},
	{keyword: "solution annealing", expansions: []string{"Heat Treatment Requirements"}},
	{keyword: "wall thickness", expansions: []string{"nominal wall", "Permissible Variations in Dimensions"}},
	{keyword: "outside diameter", expansions: []string{"OD size", "Permissible Variations in Dimensions"}},
	{keyword: "tolerance", expansions: []string{"permissible variation", "Permissible Variations in Dimensions"}},
	{keyword: "hydrostatic", expansions: []string{"test pressure", "Hydrostatic Test Requirements"}},
	{keyword: "impact test", expansions: []string{"Charpy V-notch", "Impact Test Requirements"}},
	{keyword: "ferrite content", expansions: []string{"ferrite phase balance", "Metallographic Requirements"}},
}

// unsGrades は UNS 番号と一般名の対応表
var unsGrades = map[string]string{
	"S31803": "duplex 2205",
	"S32205": "duplex 2205",
	"S32750": "super duplex 2507",
	"S32760": "super duplex Zeron 100",
	"S32304": "lean duplex 2304",
	"S32101": "lean duplex LDX 2101",
	"S31600": "316 stainless",
	"S31603": "316L stainless",
	"S30400": "304 stainless",
	"S30403": "304L stainless",
	"N08367": "AL-6XN",
	"N08904": "904L",
}
