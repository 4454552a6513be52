package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"giveaways-backend/internal/features/giveaway/models"
	"giveaways-backend/internal/features/giveaway/repository"
	"giveaways-backend/internal/platform/whop"
)

// HandleStart is the scheduler's start callback. Status is derived from the
// timestamps, so there is nothing to mutate; the only effect is announcing
// that entry is open. Early fires are dropped after re-deriving the status.
func (s *giveawayService) HandleStart(ctx context.Context, giveawayID string) error {
	giveaway, err := s.repo.GetByID(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return ErrNotFound
		}
		return err
	}

	if giveaway.Status(s.now()) != models.StatusActive {
		log.Debug().Str("giveaway_id", giveawayID).Msg("start callback outside active window, skipping")
		return nil
	}

	push := whop.PushNotification{
		ExperienceID: giveaway.ExperienceID,
		Title:        "🎉 " + giveaway.Title,
		Content: fmt.Sprintf("🎉 Giveaway %q has started! Enter now for a chance to win %s!",
			giveaway.Title, formatUSD(giveaway.PrizeAmount)),
		Link: "/giveaways",
	}
	if err := s.notifier.SendPush(ctx, push); err != nil {
		log.Warn().Err(err).Str("giveaway_id", giveawayID).Msg("failed to send start notification")
	}
	return nil
}

// HandleEnd is the scheduler's end callback and the settlement critical
// section: select a winner, pay the prize, record the payout id, announce.
// The scheduler delivers at least once, so every step is idempotent:
// selection returns the existing winner, the transfer reuses the same
// idempotency key, and a set payout id short-circuits the whole run before
// any gateway call.
func (s *giveawayService) HandleEnd(ctx context.Context, giveawayID string) error {
	release, ok, err := s.locker.Acquire(ctx, "lock:giveaway:"+giveawayID, SettlementLockTTL)
	if err != nil {
		return fmt.Errorf("acquire settlement lock: %w", err)
	}
	if !ok {
		// Another settlement run owns this giveaway. The scheduler's
		// redelivery will catch anything it leaves unfinished.
		log.Debug().Str("giveaway_id", giveawayID).Msg("settlement already in progress")
		return nil
	}
	defer release()

	giveaway, err := s.repo.GetByID(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return ErrNotFound
		}
		return err
	}

	if giveaway.Status(s.now()) != models.StatusCompleted {
		// Early fire (clock skew); the scheduler will deliver again.
		log.Debug().Str("giveaway_id", giveawayID).Msg("end callback before window close, skipping")
		return nil
	}
	if giveaway.IsSettled() {
		return nil
	}

	winner, err := s.selectWinner(ctx, giveawayID)
	if errors.Is(err, ErrNoEntries) {
		s.notifyEnded(ctx, giveaway, nil)
		log.Info().Str("giveaway_id", giveawayID).Msg("giveaway ended with no entries")
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.payout(ctx, giveaway, winner); err != nil {
		// The selected winner stands; a later end callback retries the
		// payout with the same idempotency key.
		return err
	}

	s.notifyEnded(ctx, giveaway, winner)
	log.Info().
		Str("giveaway_id", giveawayID).
		Str("winner_id", winner.UserID).
		Int64("prize_amount", giveaway.PrizeAmount).
		Msg("giveaway settled")
	return nil
}

// selectWinner draws one entry uniformly at random, at most once per
// giveaway for the lifetime of the record. A second invocation returns the
// already-marked winner without drawing. The check-then-mark race is closed
// by the repository's conditional update, not by the read below.
func (s *giveawayService) selectWinner(ctx context.Context, giveawayID string) (*models.Entry, error) {
	winner, err := s.repo.GetWinner(ctx, giveawayID)
	if err == nil {
		return winner, nil
	}
	if !errors.Is(err, repository.ErrNoWinner) {
		return nil, err
	}

	entries, err := s.repo.ListEntries(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	candidate := entries[s.randIntn(len(entries))]
	marked, err := s.repo.MarkEntryWinner(ctx, giveawayID, candidate.ID)
	if err != nil {
		return nil, err
	}
	if !marked {
		// Lost the race to a concurrent settlement run: return its winner.
		return s.repo.GetWinner(ctx, giveawayID)
	}
	candidate.IsWinner = true
	return &candidate, nil
}

// payout transfers the prize from the company ledger to the winner and
// records the idempotency key as the giveaway's payout id, write-once.
func (s *giveawayService) payout(ctx context.Context, giveaway *models.Giveaway, winner *models.Entry) error {
	ledger, err := s.payments.GetLedgerAccount(ctx, giveaway.CompanyID)
	if err != nil {
		return fmt.Errorf("%w: ledger account lookup: %v", ErrPaymentGateway, err)
	}

	if balance, err := s.payments.GetBalance(ctx, ledger.ID); err != nil {
		log.Warn().Err(err).Str("giveaway_id", giveaway.ID).Msg("failed to check ledger balance before payout")
	} else if balance < giveaway.PrizeAmount {
		log.Warn().
			Str("giveaway_id", giveaway.ID).
			Int64("balance", balance).
			Int64("prize_amount", giveaway.PrizeAmount).
			Msg("ledger balance below prize amount, transfer may be declined")
	}

	key := PayoutIdempotencyKey(giveaway.ID)
	notes := fmt.Sprintf("Giveaway prize for %q", giveaway.Title)
	if len(notes) > 50 {
		notes = notes[:49]
	}
	res, err := s.payments.TransferFunds(ctx, whop.TransferRequest{
		LedgerAccountID: ledger.ID,
		DestinationID:   winner.UserID,
		Amount:          giveaway.PrizeAmount,
		TransferFee:     ledger.TransferFee,
		IdempotenceKey:  key,
		Notes:           notes,
	})
	if err != nil {
		return fmt.Errorf("%w: transfer: %v", ErrPaymentGateway, err)
	}
	if !res.Transferred {
		return fmt.Errorf("%w: transfer was not executed", ErrPaymentGateway)
	}

	set, err := s.repo.SetPayoutID(ctx, giveaway.ID, key)
	if err != nil {
		return err
	}
	if !set {
		// A concurrent run recorded the payout first; the gateway already
		// deduplicated the transfer by key, so this is a success no-op.
		log.Debug().Str("giveaway_id", giveaway.ID).Msg("payout id already recorded")
	}
	giveaway.PayoutID = &key
	return nil
}

func (s *giveawayService) notifyEnded(ctx context.Context, giveaway *models.Giveaway, winner *models.Entry) {
	var content string
	if winner == nil {
		content = fmt.Sprintf("Giveaway %q has ended with no entries.", giveaway.Title)
	} else {
		name := winner.UserName
		if name == "" {
			name = winner.UserID
		}
		content = fmt.Sprintf("🏆 Giveaway %q has ended! Congratulations to @%s for winning %s!",
			giveaway.Title, name, formatUSD(giveaway.PrizeAmount))
	}

	push := whop.PushNotification{
		ExperienceID: giveaway.ExperienceID,
		Title:        "🏆 " + giveaway.Title,
		Content:      content,
		Link:         "/giveaways",
	}
	if err := s.notifier.SendPush(ctx, push); err != nil {
		log.Warn().Err(err).Str("giveaway_id", giveaway.ID).Msg("failed to send end notification")
	}
}
