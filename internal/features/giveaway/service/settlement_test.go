package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giveaways-backend/internal/features/giveaway/repository"
)

func TestHandleStartAnnouncesActiveGiveaway(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.seedGiveaway(t, "gvw_1", baseTime.Add(-time.Minute), baseTime.Add(time.Hour))

	require.NoError(t, env.svc.HandleStart(ctx, g.ID))

	require.Len(t, env.nf.pushes, 1)
	push := env.nf.pushes[0]
	assert.Equal(t, "exp_1", push.ExperienceID)
	assert.Contains(t, push.Content, "Spring Drop")
	assert.Contains(t, push.Content, "$50.00")
}

func TestHandleStartEarlyFireIsDropped(t *testing.T) {
	env := newTestEnv(t)
	g := env.seedGiveaway(t, "gvw_1", baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	require.NoError(t, env.svc.HandleStart(context.Background(), g.ID))
	assert.Empty(t, env.nf.pushes)
}

func TestHandleStartPushFailureIsTolerated(t *testing.T) {
	env := newTestEnv(t)
	env.nf.err = fmt.Errorf("notification service down")
	g := env.seedGiveaway(t, "gvw_1", baseTime.Add(-time.Minute), baseTime.Add(time.Hour))

	require.NoError(t, env.svc.HandleStart(context.Background(), g.ID))
}

func TestHandleStartUnknownGiveaway(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.HandleStart(context.Background(), "gvw_missing")
	require.ErrorIs(t, err, ErrNotFound)
}

// TestHandleEndSettlesGiveaway walks the full happy path: the window closes,
// one entrant is drawn, the prize moves once, the payout id is recorded and
// the winner is announced.
func TestHandleEndSettlesGiveaway(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.seedGiveaway(t, "gvw_1", baseTime.Add(-2*time.Hour), baseTime.Add(-time.Minute))
	env.seedEntry(t, g.ID, "user_1", "alice")
	env.seedEntry(t, g.ID, "user_2", "bob")

	require.NoError(t, env.svc.HandleEnd(ctx, g.ID))

	require.Len(t, env.gw.movements, 1)
	transfer := env.gw.movements[0]
	assert.Equal(t, "ldgr_1", transfer.LedgerAccountID)
	assert.Equal(t, "user_1", transfer.DestinationID)
	assert.Equal(t, int64(5000), transfer.Amount)
	assert.Equal(t, int64(3), transfer.TransferFee)
	assert.Equal(t, "giveaway_payout_gvw_1", transfer.IdempotenceKey)

	stored, err := env.repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PayoutID)
	assert.Equal(t, "giveaway_payout_gvw_1", *stored.PayoutID)

	winner, err := env.repo.GetWinner(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "user_1", winner.UserID)

	require.Len(t, env.nf.pushes, 1)
	assert.Contains(t, env.nf.pushes[0].Content, "@alice")
	assert.Contains(t, env.nf.pushes[0].Content, "$50.00")
}

// TestHandleEndRedeliveryIsIdempotent asserts the hard invariant: once the
// payout id is recorded, a redelivered end callback makes zero gateway calls
// and sends no further notifications.
func TestHandleEndRedeliveryIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.seedGiveaway(t, "gvw_1", baseTime.Add(-2*time.Hour), baseTime.Add(-time.Minute))
	env.seedEntry(t, g.ID, "user_1", "alice")

	require.NoError(t, env.svc.HandleEnd(ctx, g.ID))
	callsAfterFirst := env.gw.callCount()
	require.Len(t, env.gw.movements, 1)

	require.NoError(t, env.svc.HandleEnd(ctx, g.ID))
	require.NoError(t, env.svc.HandleEnd(ctx, g.ID))

	assert.Equal(t, callsAfterFirst, env.gw.callCount(), "settled giveaway must not touch the gateway")
	assert.Len(t, env.gw.movements, 1)
	assert.Len(t, env.nf.pushes, 1)

	winner, err := env.repo.GetWinner(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "user_1", winner.UserID)
}

func TestHandleEndNoEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.seedGiveaway(t, "gvw_1", baseTime.Add(-2*time.Hour), baseTime.Add(-time.Minute))

	require.NoError(t, env.svc.HandleEnd(ctx, g.ID))

	assert.Empty(t, env.gw.movements)
	require.Len(t, env.nf.pushes, 1)
	assert.Contains(t, env.nf.pushes[0].Content, "no entries")

	stored, err := env.repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PayoutID)

	_, err = env.repo.GetWinner(ctx, g.ID)
	require.ErrorIs(t, err, repository.ErrNoWinner)
}

func TestHandleEndEarlyFireIsDropped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.seedGiveaway(t, "gvw_1", baseTime.Add(-time.Hour), baseTime.Add(time.Hour))
	env.seedEntry(t, g.ID, "user_1", "alice")

	require.NoError(t, env.svc.HandleEnd(ctx, g.ID))

	assert.Zero(t, env.gw.callCount())
	assert.Empty(t, env.nf.pushes)
	_, err := env.repo.GetWinner(ctx, g.ID)
	require.ErrorIs(t, err, repository.ErrNoWinner)
}

func TestHandleEndLockHeldBacksOff(t *testing.T) {
	env := newTestEnv(t)
	env.lk.denyAll = true
	g := env.seedGiveaway(t, "gvw_1", baseTime.Add(-2*time.Hour), baseTime.Add(-time.Minute))
	env.seedEntry(t, g.ID, "user_1", "alice")

	require.NoError(t, env.svc.HandleEnd(context.Background(), g.ID))
	assert.Zero(t, env.gw.callCount())
	assert.Empty(t, env.nf.pushes)
}

// TestHandleEndTransferRetryReusesKey simulates a declined transfer followed
// by a scheduler redelivery: the winner stands and the retry presents the
// same idempotence key.
func TestHandleEndTransferRetryReusesKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.seedGiveaway(t, "gvw_1", baseTime.Add(-2*time.Hour), baseTime.Add(-time.Minute))
	env.seedEntry(t, g.ID, "user_1", "alice")
	env.seedEntry(t, g.ID, "user_2", "bob")

	env.gw.transferDeclined = true
	err := env.svc.HandleEnd(ctx, g.ID)
	require.ErrorIs(t, err, ErrPaymentGateway)

	stored, err := env.repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PayoutID, "declined transfer must not record a payout")

	firstWinner, err := env.repo.GetWinner(ctx, g.ID)
	require.NoError(t, err)

	env.gw.transferDeclined = false
	require.NoError(t, env.svc.HandleEnd(ctx, g.ID))

	require.Len(t, env.gw.transfers, 2)
	assert.Equal(t, env.gw.transfers[0].IdempotenceKey, env.gw.transfers[1].IdempotenceKey)
	require.Len(t, env.gw.movements, 1)

	secondWinner, err := env.repo.GetWinner(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, firstWinner.ID, secondWinner.ID, "retry must not redraw the winner")

	stored, err = env.repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PayoutID)
}

// TestPayoutDuplicateKeyRejected drives payout twice directly. The gateway
// double refuses the second transfer with the already-used key, so at most
// one fund movement can ever happen.
func TestPayoutDuplicateKeyRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.seedGiveaway(t, "gvw_1", baseTime.Add(-2*time.Hour), baseTime.Add(-time.Minute))
	winner := env.seedEntry(t, g.ID, "user_1", "alice")

	require.NoError(t, env.svc.payout(ctx, g, winner))

	fresh, err := env.repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	err = env.svc.payout(ctx, fresh, winner)
	require.ErrorIs(t, err, ErrPaymentGateway)

	assert.Len(t, env.gw.movements, 1)
}

func TestSelectWinnerDrawsAtMostOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.seedGiveaway(t, "gvw_1", baseTime.Add(-2*time.Hour), baseTime.Add(-time.Minute))
	env.seedEntry(t, g.ID, "user_1", "alice")
	env.seedEntry(t, g.ID, "user_2", "bob")

	draws := 0
	env.svc.randIntn = func(n int) int {
		draws++
		return 1
	}

	first, err := env.svc.selectWinner(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, draws)
	assert.True(t, first.IsWinner)

	second, err := env.svc.selectWinner(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, draws, "an existing winner must be returned without redrawing")
}

func TestSelectWinnerSurvivesLostRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.seedGiveaway(t, "gvw_1", baseTime.Add(-2*time.Hour), baseTime.Add(-time.Minute))
	env.seedEntry(t, g.ID, "user_1", "alice")
	loser := env.seedEntry(t, g.ID, "user_2", "bob")

	// Another run marks its winner between this run's read and its mark.
	marked, err := env.repo.MarkEntryWinner(ctx, g.ID, loser.ID)
	require.NoError(t, err)
	require.True(t, marked)

	env.svc.randIntn = func(n int) int { return 0 }
	winner, err := env.svc.selectWinner(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, loser.ID, winner.ID, "losing the mark race must return the winner that won it")
}

func TestHandleEndNoEntriesRedelivery(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.seedGiveaway(t, "gvw_1", baseTime.Add(-2*time.Hour), baseTime.Add(-time.Minute))

	require.NoError(t, env.svc.HandleEnd(ctx, g.ID))
	require.NoError(t, env.svc.HandleEnd(ctx, g.ID))

	// No payout exists, so redelivery re-runs the no-entries path. The only
	// side effect is the announcement; funds never move.
	assert.Empty(t, env.gw.movements)
	stored, err := env.repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PayoutID)
}
