package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aprclub/aprclub/server/model"
	"github.com/aprclub/aprclub/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

func TestDispatcher_PersistsAndPublishes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, ps := testutil.SetupTestCache(t)

	sub, cancel, err := ps.Subscribe(context.Background(), "notify:7")
	require.NoError(t, err)
	defer cancel()

	d := NewDispatcher(db, ps, nop())
	d.Notify(context.Background(), 7, "bailout_received", map[string]interface{}{"amount": 5})
	d.Stop() // Stop drains the queue

	var rows []model.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(7), rows[0].ToUserID)
	assert.Equal(t, "bailout_received", rows[0].Type)
	assert.Nil(t, rows[0].ReadAt)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rows[0].Payload, &payload))
	assert.EqualValues(t, 5, payload["amount"])

	msg := <-sub
	assert.Equal(t, "notify:7", msg.Channel)
	assert.Contains(t, msg.Payload, "amount")
}

func TestDispatcher_NilPubSub(t *testing.T) {
	db := testutil.SetupTestDB(t)

	d := NewDispatcher(db, nil, nop())
	d.Notify(context.Background(), 1, "friend_checked_in", nil)
	d.Stop()

	var count int64
	db.Model(&model.Notification{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAura_WritesEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)

	a := NewAura(db, nop())
	fid := int64(3)
	a.Record(context.Background(), 1, "checkin", 1, &fid)
	a.Record(context.Background(), 2, "bounty_reward", 10, nil)
	a.Stop()

	var rows []model.AuraEvent
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "checkin", rows[0].Kind)
	require.NotNil(t, rows[0].FriendshipID)
	assert.Equal(t, int64(3), *rows[0].FriendshipID)
	assert.Equal(t, int64(10), rows[1].Delta)
	assert.Nil(t, rows[1].FriendshipID)
}

func TestDispatcher_StopIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	d := NewDispatcher(db, nil, nop())
	d.Stop()
	d.Stop()
}
