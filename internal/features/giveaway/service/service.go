package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"giveaways-backend/internal/config"
	"giveaways-backend/internal/features/giveaway/models"
	"giveaways-backend/internal/features/giveaway/repository"
	"giveaways-backend/internal/platform/scheduler"
	"giveaways-backend/internal/platform/whop"
)

type giveawayService struct {
	repo     repository.GiveawayRepository
	payments PaymentGateway
	notifier NotificationGateway
	sched    Scheduler
	locker   Locker
	cfg      *config.Config

	// Injected for deterministic tests. The winner draw needs fairness,
	// not cryptographic strength.
	now      func() time.Time
	randIntn func(n int) int
}

func NewGiveawayService(
	repo repository.GiveawayRepository,
	payments PaymentGateway,
	notifier NotificationGateway,
	sched Scheduler,
	locker Locker,
	cfg *config.Config,
) GiveawayService {
	return &giveawayService{
		repo:     repo,
		payments: payments,
		notifier: notifier,
		sched:    sched,
		locker:   locker,
		cfg:      cfg,
		now:      time.Now,
		randIntn: rand.Intn,
	}
}

// CreateDeposit issues a deposit charge covering the prize. Nothing is
// persisted here: the giveaway row is created by Create once the checkout
// session completes, so a declined charge leaves no orphan record.
func (s *giveawayService) CreateDeposit(ctx context.Context, userID string, input *models.DepositRequest) (*models.DepositResponse, error) {
	if err := s.validatePrize(input.Title, input.PrizeAmount); err != nil {
		return nil, err
	}

	res, err := s.payments.ChargeUser(ctx, whop.ChargeRequest{
		UserID:         userID,
		Amount:         input.PrizeAmount,
		IdempotenceKey: depositKeyPrefix + uuid.NewString(),
		Description:    fmt.Sprintf("Giveaway deposit for %q - %s", input.Title, formatUSD(input.PrizeAmount)),
		Metadata: map[string]string{
			"type":           "giveaway_deposit",
			"giveaway_title": input.Title,
			"experience_id":  input.ExperienceID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: deposit charge: %v", ErrPaymentGateway, err)
	}

	return &models.DepositResponse{
		ChargeID:    res.ChargeID,
		CheckoutURL: res.CheckoutURL,
	}, nil
}

// Create persists a giveaway after its deposit was confirmed and arms the
// scheduler with the start and end callbacks.
func (s *giveawayService) Create(ctx context.Context, userID, companyID string, input *models.GiveawayCreate) (*models.Giveaway, error) {
	now := s.now()
	if err := s.validatePrize(input.Title, input.PrizeAmount); err != nil {
		return nil, err
	}
	if companyID == "" {
		return nil, validationf("missing company scope")
	}
	if input.ExperienceID == "" {
		return nil, validationf("missing experience_id")
	}
	if !input.StartDate.Before(input.EndDate) {
		return nil, validationf("end date must be after start date")
	}
	if input.StartDate.Before(now) {
		return nil, validationf("start date cannot be in the past")
	}
	if s.cfg.MaxDurationHours > 0 {
		maxDuration := time.Duration(s.cfg.MaxDurationHours) * time.Hour
		if input.EndDate.Sub(input.StartDate) > maxDuration {
			return nil, validationf("giveaway cannot run longer than %d hours", s.cfg.MaxDurationHours)
		}
	}

	giveaway := &models.Giveaway{
		ID:           uuid.NewString(),
		Title:        input.Title,
		PrizeAmount:  input.PrizeAmount,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		CreatorID:    userID,
		CreatorName:  input.CreatorName,
		CompanyID:    companyID,
		ExperienceID: input.ExperienceID,
		CreatedAt:    now,
	}
	if err := s.repo.Create(ctx, giveaway); err != nil {
		return nil, err
	}

	reg := scheduler.Registration{
		GiveawayID:  giveaway.ID,
		StartAt:     giveaway.StartDate,
		EndAt:       giveaway.EndDate,
		StartURL:    fmt.Sprintf("%s/api/v1/giveaways/%s/start", s.cfg.PublicBaseURL, giveaway.ID),
		EndURL:      fmt.Sprintf("%s/api/v1/giveaways/%s/end", s.cfg.PublicBaseURL, giveaway.ID),
		AuthToken:   s.cfg.CallbackToken,
		Description: fmt.Sprintf("giveaway %q window", giveaway.Title),
	}
	if err := s.sched.Schedule(ctx, reg); err != nil {
		// The record exists but will never settle without callbacks.
		// Surface the failure so the creation flow can be retried.
		log.Error().Err(err).Str("giveaway_id", giveaway.ID).Msg("failed to register giveaway schedule")
		return nil, fmt.Errorf("register schedule: %w", err)
	}

	log.Info().
		Str("giveaway_id", giveaway.ID).
		Str("company_id", companyID).
		Int64("prize_amount", giveaway.PrizeAmount).
		Time("start_date", giveaway.StartDate).
		Time("end_date", giveaway.EndDate).
		Msg("giveaway created")

	return giveaway, nil
}

func (s *giveawayService) validatePrize(title string, prizeAmount int64) error {
	if title == "" {
		return validationf("title is required")
	}
	if prizeAmount <= 0 {
		return validationf("prize amount must be greater than 0")
	}
	if prizeAmount < s.cfg.MinPrizeAmountCents {
		return validationf("prize amount must be at least %s", formatUSD(s.cfg.MinPrizeAmountCents))
	}
	return nil
}

func (s *giveawayService) GetByID(ctx context.Context, id, userID string) (*models.GiveawayWithStats, error) {
	giveaway, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	stats := models.NewGiveawayWithStats(*giveaway, s.now(), userID)
	return &stats, nil
}

func (s *giveawayService) List(ctx context.Context, companyID, userID string) ([]models.GiveawayWithStats, error) {
	var (
		giveaways []models.Giveaway
		err       error
	)
	if companyID != "" {
		giveaways, err = s.repo.ListByCompany(ctx, companyID)
	} else {
		giveaways, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]models.GiveawayWithStats, 0, len(giveaways))
	for _, g := range giveaways {
		out = append(out, models.NewGiveawayWithStats(g, now, userID))
	}
	return out, nil
}

// Enter admits a user into an active giveaway. The status check and the
// creator check are repeated here as the final guard; the duplicate check
// is left entirely to the storage unique constraint.
func (s *giveawayService) Enter(ctx context.Context, giveawayID, userID, userName string) (*models.Entry, error) {
	giveaway, err := s.repo.GetByID(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	now := s.now()
	if !giveaway.IsActive(now) {
		return nil, ErrGiveawayNotActive
	}
	if giveaway.CreatorID == userID {
		return nil, ErrCreatorCannotEnter
	}

	entry := &models.Entry{
		ID:         uuid.NewString(),
		GiveawayID: giveawayID,
		UserID:     userID,
		UserName:   userName,
		EnteredAt:  now,
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrDuplicateEntry
		}
		return nil, err
	}
	return entry, nil
}

func formatUSD(amountCents int64) string {
	return fmt.Sprintf("$%.2f", float64(amountCents)/100)
}
