package service

import (
	"context"
	"time"

	"giveaways-backend/internal/features/giveaway/models"
	"giveaways-backend/internal/platform/scheduler"
	"giveaways-backend/internal/platform/whop"
)

// GiveawayService defines the interface for giveaway operations.
type GiveawayService interface {
	CreateDeposit(ctx context.Context, userID string, input *models.DepositRequest) (*models.DepositResponse, error)
	Create(ctx context.Context, userID, companyID string, input *models.GiveawayCreate) (*models.Giveaway, error)
	GetByID(ctx context.Context, id, userID string) (*models.GiveawayWithStats, error)
	List(ctx context.Context, companyID, userID string) ([]models.GiveawayWithStats, error)
	Enter(ctx context.Context, giveawayID, userID, userName string) (*models.Entry, error)

	// Scheduler callbacks. Both tolerate duplicate and late invocations.
	HandleStart(ctx context.Context, giveawayID string) error
	HandleEnd(ctx context.Context, giveawayID string) error
}

// PaymentGateway wraps the platform money-movement calls used by the
// settlement flow.
type PaymentGateway interface {
	ChargeUser(ctx context.Context, req whop.ChargeRequest) (*whop.ChargeResult, error)
	GetLedgerAccount(ctx context.Context, companyID string) (*whop.LedgerAccount, error)
	TransferFunds(ctx context.Context, req whop.TransferRequest) (*whop.TransferResult, error)
	GetBalance(ctx context.Context, ledgerAccountID string) (int64, error)
}

// NotificationGateway dispatches push notifications to an experience.
type NotificationGateway interface {
	SendPush(ctx context.Context, n whop.PushNotification) error
}

// Scheduler arms the start/end callbacks for a giveaway window.
type Scheduler interface {
	Schedule(ctx context.Context, reg scheduler.Registration) error
}

// Locker serializes settlement per giveaway. Acquire reports ok=false when
// another holder owns the lock; callers back off and rely on redelivery.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
