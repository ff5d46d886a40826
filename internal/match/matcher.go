// Package match scores scraped display names against a snapshot of the
// existing ERP catalog. Scraped names differ from catalog names by
// formatting, cultivar suffixes and minor wording, so exact matching would
// under-detect duplicates; similarity scoring with fixed thresholds feeds
// the review queue instead.
package match

import (
	"strings"

	"github.com/agext/levenshtein"
	"golang.org/x/text/unicode/norm"

	"github.com/leafgrid/catalog-sync/internal/normalize"
)

// Item is one existing catalog entry from the ERP snapshot.
type Item struct {
	Number      string `json:"number"`
	DisplayName string `json:"displayName"`
}

// Snapshot is an immutable-for-the-run view of the existing catalog, loaded
// once per ingestion pass. Insertion order is preserved so tie-breaking is
// deterministic across runs.
type Snapshot struct {
	items  []Item
	folded []string
}

// NewSnapshot builds a snapshot from catalog items, precomputing the folded
// comparison form of every display name.
func NewSnapshot(items []Item) *Snapshot {
	s := &Snapshot{
		items:  make([]Item, len(items)),
		folded: make([]string, len(items)),
	}
	copy(s.items, items)
	for i, it := range items {
		s.folded[i] = fold(it.DisplayName)
	}
	return s
}

// Len returns the number of catalog items in the snapshot.
func (s *Snapshot) Len() int { return len(s.items) }

// Result is the best catalog match for a candidate name. Score is a
// normalized similarity in [0,1]; an empty snapshot yields the zero Result.
type Result struct {
	Name   string  `json:"name"`
	Number string  `json:"number"`
	Score  float64 `json:"score"`
}

// Match scores the candidate against every snapshot entry and returns the
// highest-scoring one. Ties break to the first-inserted entry: only a
// strictly higher score displaces the current best.
func (s *Snapshot) Match(candidate string) Result {
	cand := fold(candidate)
	if cand == "" || len(s.items) == 0 {
		return Result{}
	}

	var best Result
	for i, folded := range s.folded {
		score := levenshtein.Similarity(cand, folded, nil)
		if score > best.Score {
			best = Result{
				Name:   s.items[i].DisplayName,
				Number: s.items[i].Number,
				Score:  score,
			}
		}
	}
	return best
}

// fold prepares a name for comparison: NFC so combining characters from
// scraped HTML compare equal to their precomposed catalog forms, lowercase,
// whitespace collapsed.
func fold(s string) string {
	return normalize.CollapseSpaces(strings.ToLower(norm.NFC.String(s)))
}
