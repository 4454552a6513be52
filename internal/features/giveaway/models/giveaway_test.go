package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	tests := []struct {
		name string
		now  time.Time
		want DerivedStatus
	}{
		{"well before start", start.Add(-time.Hour), StatusUpcoming},
		{"one instant before start", start.Add(-time.Nanosecond), StatusUpcoming},
		{"exactly at start", start, StatusActive},
		{"mid window", start.Add(12 * time.Hour), StatusActive},
		{"one instant before end", end.Add(-time.Nanosecond), StatusActive},
		{"exactly at end", end, StatusCompleted},
		{"after end", end.Add(time.Hour), StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.now, start, end))
		})
	}
}

func TestGiveawayIsSettled(t *testing.T) {
	g := Giveaway{}
	assert.False(t, g.IsSettled())

	empty := ""
	g.PayoutID = &empty
	assert.False(t, g.IsSettled())

	key := "giveaway_payout_gvw_1"
	g.PayoutID = &key
	assert.True(t, g.IsSettled())
}

func TestGiveawayTimeRemaining(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := Giveaway{StartDate: start, EndDate: start.Add(time.Hour)}

	remaining := g.TimeRemaining(start)
	require.NotNil(t, remaining)
	assert.Equal(t, int64(3600000), *remaining)

	assert.Nil(t, g.TimeRemaining(g.EndDate))
	assert.Nil(t, g.TimeRemaining(g.EndDate.Add(time.Minute)))
}

func TestNewGiveawayWithStats(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := Giveaway{
		ID:        "gvw_1",
		StartDate: start,
		EndDate:   start.Add(time.Hour),
		Entries: []Entry{
			{ID: "ent_1", GiveawayID: "gvw_1", UserID: "user_1"},
			{ID: "ent_2", GiveawayID: "gvw_1", UserID: "user_2"},
		},
	}

	stats := NewGiveawayWithStats(g, start.Add(30*time.Minute), "user_2")
	assert.Equal(t, StatusActive, stats.Status)
	assert.Equal(t, 2, stats.ParticipantCount)
	assert.True(t, stats.HasUserEntered)
	require.NotNil(t, stats.TimeRemaining)
	assert.Equal(t, int64(1800000), *stats.TimeRemaining)

	stats = NewGiveawayWithStats(g, start.Add(2*time.Hour), "user_9")
	assert.Equal(t, StatusCompleted, stats.Status)
	assert.False(t, stats.HasUserEntered)
	assert.Nil(t, stats.TimeRemaining)
}
