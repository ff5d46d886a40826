package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusProcessed.Terminal())
	assert.True(t, StatusIgnored.Terminal())
	assert.False(t, StatusReady.Terminal())
	assert.False(t, StatusReview.Terminal())
	assert.False(t, StatusDuplicate.Terminal())
}

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStatus("ready")
	assert.Error(t, err, "statuses are case sensitive")

	_, err = ParseStatus("ARCHIVED")
	assert.Error(t, err)
}

func TestRecordEmpty(t *testing.T) {
	var r *Record
	assert.True(t, r.Empty())
	assert.True(t, (&Record{URL: "https://shop.example/p"}).Empty())
	assert.False(t, (&Record{Name: "Amnesia Haze"}).Empty())
}

func TestRunReportCounts(t *testing.T) {
	r := &RunReport{Items: []ItemResult{
		{Outcome: OutcomePersisted},
		{Outcome: OutcomePersisted},
		{Outcome: OutcomeSkipped},
		{Outcome: OutcomeFailed},
	}}

	persisted, skipped, failed := r.Counts()
	assert.Equal(t, 2, persisted)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, failed)
}
