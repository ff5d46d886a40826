package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Status is the review state of a queue entry.
type Status string

const (
	// StatusReady marks an item classified as new, ready for import.
	StatusReady Status = "READY"
	// StatusReview marks an ambiguous match that needs a human decision.
	StatusReview Status = "REVIEW"
	// StatusDuplicate marks a near-certain match against an existing item.
	StatusDuplicate Status = "DUPLICATE"
	// StatusProcessed marks an entry imported into the ERP. Terminal.
	StatusProcessed Status = "PROCESSED"
	// StatusIgnored marks an entry dismissed by a reviewer. Terminal.
	// Entries are never physically deleted; IGNORED is the tombstone.
	StatusIgnored Status = "IGNORED"
)

// AllStatuses lists every valid status in display order.
var AllStatuses = []Status{StatusReady, StatusReview, StatusDuplicate, StatusProcessed, StatusIgnored}

// Terminal reports whether automated upserts must leave the entry untouched.
// Once a human decision put an entry here, re-scrapes must not clobber it.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusIgnored
}

// ParseStatus validates a status string from CLI flags or API payloads.
func ParseStatus(raw string) (Status, error) {
	for _, s := range AllStatuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", eris.Errorf("unknown status %q", raw)
}

// QueueEntry is the persisted unit of work: one discovered product awaiting
// or having completed import review. URL is the unique key; ProductHash is a
// stored secondary identity, not the dedup key (two regional catalog URLs
// may legitimately share a hash). ProductName holds the scraped name as-is;
// the cultivar-composed name is derived from Scraped where needed.
type QueueEntry struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	ProductHash string    `json:"product_hash"`
	ProductName string    `json:"produktname"`
	Status      Status    `json:"status"`
	MatchInfo   string    `json:"match_info,omitempty"`
	Scraped     Record    `json:"scraped_data"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
