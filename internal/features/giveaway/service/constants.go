package service

import "time"

const (
	// SettlementLockTTL bounds how long a crashed settlement run can hold
	// the per-giveaway lock before the scheduler's redelivery gets through.
	SettlementLockTTL = 30 * time.Second

	depositKeyPrefix = "giveaway_deposit_"
	payoutKeyPrefix  = "giveaway_payout_"
)

// PayoutIdempotencyKey derives the payout idempotency key from the giveaway
// id alone. Every retry of the end callback produces the same key, making
// the payment gateway the final arbiter of duplicate suppression. A fresh
// key per attempt would break that and is deliberately not supported.
func PayoutIdempotencyKey(giveawayID string) string {
	return payoutKeyPrefix + giveawayID
}
