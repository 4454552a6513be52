package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("giveaway not found")
	ErrGiveawayNotActive  = errors.New("giveaway is not currently active")
	ErrCreatorCannotEnter = errors.New("creators cannot enter their own giveaways")
	ErrDuplicateEntry     = errors.New("user has already entered this giveaway")

	// ErrNoEntries is the terminal outcome of settling a giveaway nobody
	// entered. It is not a failure: no winner exists and no payout happens.
	ErrNoEntries = errors.New("no entries found for this giveaway")

	// ErrPaymentGateway marks deposit or payout calls that failed at the
	// platform. Payout failures leave the giveaway re-triggerable.
	ErrPaymentGateway = errors.New("payment gateway error")
)

// ValidationError reports bad creation input with a user-facing reason.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
