package model

import "time"

// ItemOutcome is the terminal per-link outcome of one ingestion step.
type ItemOutcome string

const (
	// OutcomePersisted means the link went through the full pipeline and
	// its queue entry was upserted.
	OutcomePersisted ItemOutcome = "persisted"
	// OutcomeSkipped means an entry for the URL already existed and the
	// link was not scraped again.
	OutcomeSkipped ItemOutcome = "skipped"
	// OutcomeFailed means a per-item error was caught and the run moved on.
	OutcomeFailed ItemOutcome = "failed"
)

// ItemResult records what happened to one discovered link. Failures carry
// the error text so a run report stays inspectable after the fact.
type ItemResult struct {
	URL     string      `json:"url"`
	Outcome ItemOutcome `json:"outcome"`
	Status  Status      `json:"status,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RunReport summarizes one ingestion pass over the discovered link list.
type RunReport struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Items      []ItemResult `json:"items"`
}

// Counts tallies outcomes for log lines and CLI summaries.
func (r *RunReport) Counts() (persisted, skipped, failed int) {
	for _, it := range r.Items {
		switch it.Outcome {
		case OutcomePersisted:
			persisted++
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}
	return persisted, skipped, failed
}
