package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/aprclub/aprclub/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckin_ResetsDebtAndClock(t *testing.T) {
	svc, rec := newService(t)
	id := seedFriendship(t, svc)
	setPerspective(t, svc, id, 1, 4, 10) // currentDebt = 4 + 3

	res, err := svc.Checkin(context.Background(), id, 1, "met for coffee")
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.Snapshot.BaseDebt)
	assert.Equal(t, int64(0), res.Snapshot.CurrentDebt)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, "met for coffee", res.Record.Proof)

	var f model.Friendship
	require.NoError(t, svc.db.First(&f, id).Error)
	assert.Equal(t, testNow, f.PerspectiveOf(1).LastInteractionAt.UTC())

	assert.Contains(t, rec.notices, "2:friend_checked_in")
	assert.Contains(t, rec.auras, "1:checkin")
}

func TestCheckin_OncePerDay(t *testing.T) {
	svc, _ := newService(t)
	id := seedFriendship(t, svc)

	_, err := svc.Checkin(context.Background(), id, 1, "")
	require.NoError(t, err)

	// Later the same UTC day: rejected, ledger untouched.
	svc.clock = func() time.Time { return testNow.Add(9 * time.Hour) }
	_, err = svc.Checkin(context.Background(), id, 1, "")
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

	var count int64
	svc.db.Model(&model.CheckinRecord{}).Where("friendship_id = ?", id).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCheckin_CooldownIsPerActor(t *testing.T) {
	svc, _ := newService(t)
	id := seedFriendship(t, svc)

	_, err := svc.Checkin(context.Background(), id, 1, "")
	require.NoError(t, err)
	// The counterparty's own cooldown is untouched.
	_, err = svc.Checkin(context.Background(), id, 2, "")
	require.NoError(t, err)
}

func TestCheckin_StreakAdvancesOnConsecutiveDays(t *testing.T) {
	svc, _ := newService(t)
	id := seedFriendship(t, svc)

	res, err := svc.Checkin(context.Background(), id, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)

	svc.clock = func() time.Time { return testNow.AddDate(0, 0, 1) }
	res, err = svc.Checkin(context.Background(), id, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Streak)

	// Either participant extends the shared streak.
	svc.clock = func() time.Time { return testNow.AddDate(0, 0, 2) }
	res, err = svc.Checkin(context.Background(), id, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Streak)
}

func TestCheckin_SameDayCounterpartyHoldsStreak(t *testing.T) {
	svc, _ := newService(t)
	id := seedFriendship(t, svc)

	_, err := svc.Checkin(context.Background(), id, 1, "")
	require.NoError(t, err)
	res, err := svc.Checkin(context.Background(), id, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
}

func TestCheckin_GapResetsStreak(t *testing.T) {
	svc, _ := newService(t)
	id := seedFriendship(t, svc)

	svc.clock = func() time.Time { return testNow }
	_, err := svc.Checkin(context.Background(), id, 1, "")
	require.NoError(t, err)
	svc.clock = func() time.Time { return testNow.AddDate(0, 0, 1) }
	_, err = svc.Checkin(context.Background(), id, 1, "")
	require.NoError(t, err)

	// Two silent days: back to 1.
	svc.clock = func() time.Time { return testNow.AddDate(0, 0, 3) }
	res, err := svc.Checkin(context.Background(), id, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
}

func TestCheckin_OutsiderRejected(t *testing.T) {
	svc, _ := newService(t)
	id := seedFriendship(t, svc)

	_, err := svc.Checkin(context.Background(), id, 7, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCheckin_UnknownFriendship(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Checkin(context.Background(), 404, 1, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckin_DoesNotTouchCounterpartyDebt(t *testing.T) {
	svc, _ := newService(t)
	id := seedFriendship(t, svc)
	setPerspective(t, svc, id, 2, 5, 10)

	_, err := svc.Checkin(context.Background(), id, 1, "")
	require.NoError(t, err)

	v, err := svc.GetFriendshipView(context.Background(), 2, id)
	require.NoError(t, err)
	assert.Equal(t, int64(8), v.Mine.Snapshot.CurrentDebt)
}
