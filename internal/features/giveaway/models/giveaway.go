package models

import "time"

// DerivedStatus is the lifecycle phase of a giveaway, computed from its
// window timestamps on every read. It is never persisted: storing it would
// let the value go stale relative to wall-clock time.
type DerivedStatus string

const (
	StatusUpcoming  DerivedStatus = "UPCOMING"
	StatusActive    DerivedStatus = "ACTIVE"
	StatusCompleted DerivedStatus = "COMPLETED"
)

// DeriveStatus maps a point in time onto the giveaway window
// [startDate, endDate). The interval is half-open: at startDate the giveaway
// is already ACTIVE, at endDate it is already COMPLETED.
func DeriveStatus(now, startDate, endDate time.Time) DerivedStatus {
	if now.Before(startDate) {
		return StatusUpcoming
	}
	if now.Before(endDate) {
		return StatusActive
	}
	return StatusCompleted
}

// Giveaway is a time-boxed prize draw created by a community creator.
// PayoutID is write-once: it is set to the payout idempotency key when the
// prize transfer is confirmed and never cleared afterwards.
type Giveaway struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	PrizeAmount  int64     `gorm:"not null" json:"prize_amount"` // smallest currency unit
	StartDate    time.Time `gorm:"not null;index" json:"start_date"`
	EndDate      time.Time `gorm:"not null;index" json:"end_date"`
	CreatorID    string    `gorm:"not null;index" json:"creator_id"`
	CreatorName  string    `json:"creator_name,omitempty"`
	CompanyID    string    `gorm:"not null;index" json:"company_id"`
	ExperienceID string    `gorm:"not null" json:"experience_id"`
	PayoutID     *string   `json:"payout_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	Entries []Entry `gorm:"foreignKey:GiveawayID" json:"entries,omitempty"`
}

// Status returns the lifecycle phase at the given instant.
func (g *Giveaway) Status(now time.Time) DerivedStatus {
	return DeriveStatus(now, g.StartDate, g.EndDate)
}

// IsActive reports whether entries are currently admitted.
func (g *Giveaway) IsActive(now time.Time) bool {
	return g.Status(now) == StatusActive
}

// IsSettled reports whether a payout has already been recorded.
func (g *Giveaway) IsSettled() bool {
	return g.PayoutID != nil && *g.PayoutID != ""
}

// TimeRemaining returns milliseconds until the window closes, or nil once
// the giveaway has ended.
func (g *Giveaway) TimeRemaining(now time.Time) *int64 {
	remaining := g.EndDate.Sub(now).Milliseconds()
	if remaining <= 0 {
		return nil
	}
	return &remaining
}

// Entry is a member's ticket in a giveaway. A user holds at most one entry
// per giveaway, enforced by a unique index on (giveaway_id, user_id).
// At most one entry per giveaway carries IsWinner=true.
type Entry struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	GiveawayID string    `gorm:"not null;uniqueIndex:idx_entries_giveaway_user" json:"giveaway_id"`
	UserID     string    `gorm:"not null;uniqueIndex:idx_entries_giveaway_user" json:"user_id"`
	UserName   string    `json:"user_name,omitempty"`
	IsWinner   bool      `gorm:"not null;default:false" json:"is_winner"`
	EnteredAt  time.Time `gorm:"not null" json:"entered_at"`
}
