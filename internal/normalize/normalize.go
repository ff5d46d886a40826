package normalize

import (
	"strings"
	"unicode"

	"github.com/leafgrid/catalog-sync/internal/model"
)

// Apply rewrites every mapped field of the record whose current value
// matches a known synonym, comparing case/whitespace/punctuation-insensitively.
// The first matching rule per field wins; unmapped values pass through
// unchanged. Fields absent from the table are skipped.
func Apply(r *model.Record, m Mappings) {
	for field, rules := range m.Fields {
		ref := fieldRef(r, field)
		if ref == nil || *ref == "" {
			continue
		}
		key := foldKey(*ref)
		for _, rule := range rules {
			if foldKey(rule.From) == key {
				*ref = rule.To
				break
			}
		}
	}
}

// fieldRef resolves a mapping-table field name to the record field it
// governs. Unknown names return nil and are ignored, so a stale table entry
// cannot break a run.
func fieldRef(r *model.Record, name string) *string {
	switch name {
	case "name":
		return &r.Name
	case "manufacturer":
		return &r.Manufacturer
	case "origin":
		return &r.Origin
	case "irradiation":
		return &r.Irradiation
	case "genetic":
		return &r.Genetic
	case "cultivar":
		return &r.Cultivar
	case "product_group":
		return &r.ProductGroup
	default:
		return nil
	}
}

// foldKey lowercases and strips every non-alphanumeric rune, so "Non-irradiated",
// "non irradiated" and "NonIrradiated" all collapse to the same key.
func foldKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
