package models

import "time"

// DepositRequest asks the payment gateway for a deposit charge covering the
// prize before the giveaway record exists.
type DepositRequest struct {
	Title        string `json:"title" binding:"required"`
	PrizeAmount  int64  `json:"prize_amount" binding:"required"`
	ExperienceID string `json:"experience_id" binding:"required"`
}

// DepositResponse carries the checkout session the creator completes on the
// platform. The giveaway itself is created only after payment.
type DepositResponse struct {
	ChargeID    string `json:"charge_id"`
	CheckoutURL string `json:"checkout_url"`
}

// GiveawayCreate is the create-after-deposit payload.
type GiveawayCreate struct {
	Title        string    `json:"title" binding:"required"`
	PrizeAmount  int64     `json:"prize_amount" binding:"required"`
	StartDate    time.Time `json:"start_date" binding:"required"`
	EndDate      time.Time `json:"end_date" binding:"required"`
	CreatorName  string    `json:"creator_name"`
	ExperienceID string    `json:"experience_id" binding:"required"`
}

// EntryCreate is the entry-admission payload.
type EntryCreate struct {
	UserName string `json:"user_name"`
}

// GiveawayWithStats decorates a giveaway with the read-model fields the
// client renders: derived status, participant count, time remaining and
// whether the requesting user already entered.
type GiveawayWithStats struct {
	Giveaway
	Status           DerivedStatus `json:"status"`
	ParticipantCount int           `json:"participant_count"`
	TimeRemaining    *int64        `json:"time_remaining"` // ms, nil once ended
	HasUserEntered   bool          `json:"has_user_entered"`
}

// NewGiveawayWithStats computes the derived fields at the given instant.
func NewGiveawayWithStats(g Giveaway, now time.Time, userID string) GiveawayWithStats {
	entered := false
	if userID != "" {
		for _, e := range g.Entries {
			if e.UserID == userID {
				entered = true
				break
			}
		}
	}
	return GiveawayWithStats{
		Giveaway:         g,
		Status:           g.Status(now),
		ParticipantCount: len(g.Entries),
		TimeRemaining:    g.TimeRemaining(now),
		HasUserEntered:   entered,
	}
}
