package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		product  string
		cultivar string
		want     string
	}{
		{"plain append", "Bedrocan 22/1", "Jack Herer", "Bedrocan 22/1 - Jack Herer"},
		{"already dashed stays", "Amnesia Haze - Amnesia Haze", "Amnesia Haze", "Amnesia Haze - Amnesia Haze"},
		{"tight dash stays", "Gorilla Glue-GG4", "GG4", "Gorilla Glue-GG4"},
		{"name equals cultivar gets suffix", "Amnesia Haze", "Amnesia Haze", "Amnesia Haze - Amnesia Haze"},
		{"bare suffix rewritten to dashed", "Acme Amnesia Haze", "Amnesia Haze", "Acme - Amnesia Haze"},
		{"no cultivar", "Bedrocan 22/1", "", "Bedrocan 22/1"},
		{"no name", "", "Jack Herer", ""},
		{"surrounding whitespace", "  Bedrocan  ", " Jack Herer ", "Bedrocan - Jack Herer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeDisplayName(tt.product, tt.cultivar))
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Citrus", CleanText("  Citrus "))
	assert.Equal(t, "", CleanText("Terpene"), "section headers are chrome")
	assert.Equal(t, "", CleanText("Effekte"))
	assert.Equal(t, "", CleanText("Medizinische Wirkung bei"))
	assert.Equal(t, "", CleanText("Alle anzeigen"), "show-all button caption is not a value")
	assert.Equal(t, "", CleanText("Show all"))
	assert.Equal(t, "", CleanText(strings.Repeat("x", 51)), "overlong values are artifacts")
	assert.Equal(t, "", CleanText(""))
}

func TestCleanNumber(t *testing.T) {
	assert.Equal(t, "23", CleanNumber("22,5 %"))
	assert.Equal(t, "22", CleanNumber("THC: 22.4%"))
	assert.Equal(t, "20", CleanNumber("20"))
	assert.Equal(t, "", CleanNumber("n/a"))
	assert.Equal(t, "", CleanNumber(""))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Amnesia Haze 221", SanitizeFilename(`Amnesia Haze 22/1`))
	assert.Equal(t, "ab", SanitizeFilename(`a\/*?:"<>|b`))
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "a b c", CollapseSpaces("  a   b \t c "))
}
