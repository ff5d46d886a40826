package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// sectionHeaders are storefront chrome strings that leak into attribute
// chip scraping and must never be stored as values. The storefront renders
// German, so the German titles and the "Alle anzeigen" show-all button are
// the ones that actually appear; the English variants are kept for safety.
var sectionHeaders = map[string]struct{}{
	"Effekte":                  {},
	"Wirkung":                  {},
	"Geschmack":                {},
	"Terpene":                  {},
	"Medizinische Wirkung bei": {},
	"Alle anzeigen":            {},
	"Effects":                  {},
	"Taste":                    {},
	"Aroma":                    {},
	"Terpenes":                 {},
	"Medical uses":             {},
	"Show all":                 {},
}

var (
	nonNumericRe = regexp.MustCompile(`[^\d,.]`)
	filenameRe   = regexp.MustCompile(`[\\/*?:"<>|]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// CleanText trims a scraped free-text value and drops garbage: overlong
// strings are extraction artifacts, section headers are chrome.
func CleanText(s string) string {
	t := strings.TrimSpace(s)
	if len(t) > 50 {
		return ""
	}
	if _, ok := sectionHeaders[t]; ok {
		return ""
	}
	return t
}

// CleanNumber extracts a potency value from scraped text like "22,5 %" and
// renders it as a whole-number string ("23"). Unparseable input yields "".
func CleanNumber(s string) string {
	if s == "" {
		return ""
	}
	clean := strings.ReplaceAll(nonNumericRe.ReplaceAllString(s, ""), ",", ".")
	val, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return ""
	}
	return strconv.Itoa(int(math.Round(val)))
}

// SanitizeFilename strips characters that are invalid in file names on any
// supported platform.
func SanitizeFilename(name string) string {
	return strings.TrimSpace(filenameRe.ReplaceAllString(name, ""))
}

// CollapseSpaces folds runs of whitespace into single spaces.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
}

// ComposeDisplayName builds the name used for catalog matching and ERP
// import. When both a product name and a cultivar are present the cultivar
// is appended as "<name> - <cultivar>". A name that already carries the
// dashed cultivar suffix is used as-is; a bare cultivar suffix is rewritten
// into the dashed form rather than suffixed twice.
func ComposeDisplayName(name, cultivar string) string {
	name = strings.TrimSpace(name)
	cultivar = strings.TrimSpace(cultivar)
	if name == "" || cultivar == "" {
		return name
	}
	if strings.HasSuffix(name, "- "+cultivar) || strings.HasSuffix(name, "-"+cultivar) {
		return name
	}
	base := name
	if name != cultivar && strings.HasSuffix(name, cultivar) {
		base = strings.TrimSpace(strings.TrimSuffix(name, cultivar))
	}
	if base == "" {
		base = name
	}
	return base + " - " + cultivar
}
