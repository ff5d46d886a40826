package match

import (
	"fmt"
	"math"

	"github.com/leafgrid/catalog-sync/internal/model"
)

// Classification thresholds. These boundary values are contractual: review
// tooling and reporting depend on them, change them and human reviewers
// start seeing duplicates filed as new items.
const (
	// duplicateThreshold: above this the item near-certainly exists already.
	duplicateThreshold = 0.98
	// reviewThreshold: above this (up to duplicateThreshold) a human decides.
	reviewThreshold = 0.85
)

// Classify maps a similarity score to the initial queue status.
func Classify(score float64) model.Status {
	switch {
	case score > duplicateThreshold:
		return model.StatusDuplicate
	case score > reviewThreshold:
		return model.StatusReview
	default:
		return model.StatusReady
	}
}

// Describe classifies a match result and renders the human-readable
// match-info line shown in the review queue.
func Describe(res Result) (model.Status, string) {
	status := Classify(res.Score)
	switch status {
	case model.StatusDuplicate:
		return status, fmt.Sprintf("Found: %s (%s)", res.Name, res.Number)
	case model.StatusReview:
		pct := int(math.Round(res.Score * 100))
		return status, fmt.Sprintf("Similar: %s (%s) | %d%%", res.Name, res.Number, pct)
	default:
		return status, "New"
	}
}
