package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aprclub/aprclub/server/cache"
	"github.com/aprclub/aprclub/server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Dispatcher persists notifications and announces them on the cache
// pub/sub, asynchronously. Enqueueing never blocks and never fails the
// caller: a full queue drops the notification with a warning. Ledger
// writes must not depend on delivery.
type Dispatcher struct {
	db     *gorm.DB
	ps     cache.PubSub
	ch     chan *model.Notification
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewDispatcher creates a Dispatcher and starts its background worker.
func NewDispatcher(db *gorm.DB, ps cache.PubSub, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		db:     db,
		ps:     ps,
		ch:     make(chan *model.Notification, 1024),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	d.wg.Add(1)
	go d.worker()
	return d
}

// Notify enqueues a notification for toUserID. Fire-and-forget.
func (d *Dispatcher) Notify(_ context.Context, toUserID int64, typ string, payload map[string]interface{}) {
	body, _ := json.Marshal(payload)
	n := &model.Notification{
		ToUserID: toUserID,
		Type:     typ,
		Payload:  datatypes.JSON(body),
	}
	select {
	case d.ch <- n:
	default:
		d.logger.Warn("notification queue full, dropping",
			zap.Int64("to_user_id", toUserID),
			zap.String("type", typ))
	}
}

// Stop flushes queued notifications and shuts down the worker.
func (d *Dispatcher) Stop() {
	select {
	case <-d.stopCh:
	default:
		close(d.stopCh)
	}
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case n := <-d.ch:
			d.deliver(n)
		case <-d.stopCh:
			for {
				select {
				case n := <-d.ch:
					d.deliver(n)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(n *model.Notification) {
	if err := d.db.Create(n).Error; err != nil {
		d.logger.Error("notification write failed",
			zap.Int64("to_user_id", n.ToUserID),
			zap.String("type", n.Type),
			zap.Error(err))
		return
	}
	if d.ps == nil {
		return
	}
	channel := fmt.Sprintf("notify:%d", n.ToUserID)
	if err := d.ps.Publish(context.Background(), channel, string(n.Payload)); err != nil {
		d.logger.Warn("notification publish failed",
			zap.String("channel", channel),
			zap.Error(err))
	}
}
