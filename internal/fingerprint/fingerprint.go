// Package fingerprint derives a stable content identity for scraped
// products. The hash is stored on each queue entry as a recomputable
// secondary identity; the primary dedup key remains the source URL.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// New hashes the normalized identity tuple (manufacturer, product name,
// potency). Casing, whitespace and punctuation never change the result:
// the inputs are lowercased and every non-alphanumeric rune is stripped
// before digesting.
func New(manufacturer, name, potency string) string {
	identity := strings.ToLower(manufacturer) + strings.ToLower(name) + potency

	var b strings.Builder
	b.Grow(len(identity))
	for _, r := range identity {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
