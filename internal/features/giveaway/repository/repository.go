package repository

import (
	"context"
	"errors"

	"giveaways-backend/internal/features/giveaway/models"
)

var (
	ErrGiveawayNotFound = errors.New("giveaway not found")
	ErrDuplicateEntry   = errors.New("user has already entered this giveaway")
	ErrNoWinner         = errors.New("no winner selected for this giveaway")
)

// GiveawayRepository defines persistence operations for giveaways and their
// entries. Uniqueness of (giveaway_id, user_id) and the single-winner rule
// are enforced at this layer, not by callers reading first.
type GiveawayRepository interface {
	Create(ctx context.Context, giveaway *models.Giveaway) error
	GetByID(ctx context.Context, id string) (*models.Giveaway, error)
	List(ctx context.Context) ([]models.Giveaway, error)
	ListByCompany(ctx context.Context, companyID string) ([]models.Giveaway, error)
	// SetPayoutID records the payout idempotency key write-once. It returns
	// false without touching the row when a payout id is already set.
	SetPayoutID(ctx context.Context, id, payoutID string) (bool, error)

	CreateEntry(ctx context.Context, entry *models.Entry) error
	ListEntries(ctx context.Context, giveawayID string) ([]models.Entry, error)
	// GetWinner returns the entry marked as winner, or ErrNoWinner.
	GetWinner(ctx context.Context, giveawayID string) (*models.Entry, error)
	// MarkEntryWinner flips is_winner on the entry only if no entry of the
	// giveaway is marked yet; the guard and the write are one atomic
	// statement. Returns false when a winner already exists.
	MarkEntryWinner(ctx context.Context, giveawayID, entryID string) (bool, error)
}
