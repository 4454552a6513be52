package gormdb

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"giveaways-backend/internal/features/giveaway/models"
	"giveaways-backend/internal/features/giveaway/repository"
)

type gormRepository struct {
	db *gorm.DB
}

// NewGiveawayRepository returns a GiveawayRepository backed by gorm.
func NewGiveawayRepository(db *gorm.DB) repository.GiveawayRepository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, giveaway *models.Giveaway) error {
	if err := r.db.WithContext(ctx).Create(giveaway).Error; err != nil {
		return fmt.Errorf("create giveaway: %w", err)
	}
	return nil
}

func (r *gormRepository) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	var giveaway models.Giveaway
	err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("entered_at ASC")
		}).
		Where("id = ?", id).
		Take(&giveaway).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, err
	}
	return &giveaway, nil
}

func (r *gormRepository) List(ctx context.Context) ([]models.Giveaway, error) {
	var giveaways []models.Giveaway
	err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("entered_at ASC")
		}).
		Order("created_at DESC").
		Find(&giveaways).Error
	if err != nil {
		return nil, err
	}
	return giveaways, nil
}

func (r *gormRepository) ListByCompany(ctx context.Context, companyID string) ([]models.Giveaway, error) {
	var giveaways []models.Giveaway
	err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("entered_at ASC")
		}).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&giveaways).Error
	if err != nil {
		return nil, err
	}
	return giveaways, nil
}

// SetPayoutID writes the payout id only when none is set. The WHERE clause
// makes the write-once guarantee a property of the single UPDATE statement.
func (r *gormRepository) SetPayoutID(ctx context.Context, id, payoutID string) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Giveaway{}).
		Where("id = ? AND payout_id IS NULL", id).
		Update("payout_id", payoutID)
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected == 1 {
		return true, nil
	}
	// Distinguish "already settled" from "no such giveaway".
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Giveaway{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, repository.ErrGiveawayNotFound
	}
	return false, nil
}

// CreateEntry inserts one entry. The unique index on (giveaway_id, user_id)
// is the sole arbiter of duplicates: on insert failure the row is re-read
// and a pre-existing entry surfaces as ErrDuplicateEntry. Two racing inserts
// for the same user cannot both pass the constraint.
func (r *gormRepository) CreateEntry(ctx context.Context, entry *models.Entry) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err == nil {
		return nil
	}
	var count int64
	countErr := r.db.WithContext(ctx).
		Model(&models.Entry{}).
		Where("giveaway_id = ? AND user_id = ?", entry.GiveawayID, entry.UserID).
		Count(&count).Error
	if countErr == nil && count > 0 {
		return repository.ErrDuplicateEntry
	}
	return fmt.Errorf("create entry: %w", err)
}

func (r *gormRepository) ListEntries(ctx context.Context, giveawayID string) ([]models.Entry, error) {
	var entries []models.Entry
	err := r.db.WithContext(ctx).
		Where("giveaway_id = ?", giveawayID).
		Order("entered_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *gormRepository) GetWinner(ctx context.Context, giveawayID string) (*models.Entry, error) {
	var entry models.Entry
	err := r.db.WithContext(ctx).
		Where("giveaway_id = ? AND is_winner = ?", giveawayID, true).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNoWinner
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarkEntryWinner performs the check-then-mark as one conditional UPDATE so
// two concurrent settlement attempts cannot both mark a winner.
func (r *gormRepository) MarkEntryWinner(ctx context.Context, giveawayID, entryID string) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(
		`UPDATE entries SET is_winner = ?
		 WHERE id = ? AND giveaway_id = ?
		   AND NOT EXISTS (
		     SELECT 1 FROM entries w
		     WHERE w.giveaway_id = ? AND w.is_winner = ?
		   )`,
		true, entryID, giveawayID, giveawayID, true,
	)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}
