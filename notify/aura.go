package notify

import (
	"context"
	"sync"

	"github.com/aprclub/aprclub/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Aura appends achievement signal events for the external aura system.
// Writes are asynchronous; the ledger never waits on or reads them.
type Aura struct {
	db     *gorm.DB
	ch     chan *model.AuraEvent
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewAura creates an Aura recorder and starts its background worker.
func NewAura(db *gorm.DB, logger *zap.Logger) *Aura {
	a := &Aura{
		db:     db,
		ch:     make(chan *model.AuraEvent, 1024),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	a.wg.Add(1)
	go a.worker()
	return a
}

// Record enqueues one aura event.
func (a *Aura) Record(_ context.Context, userID int64, kind string, delta int64, friendshipID *int64) {
	ev := &model.AuraEvent{
		UserID:       userID,
		Kind:         kind,
		Delta:        delta,
		FriendshipID: friendshipID,
	}
	select {
	case a.ch <- ev:
	default:
		a.logger.Warn("aura queue full, dropping event",
			zap.Int64("user_id", userID),
			zap.String("kind", kind))
	}
}

// Stop flushes queued events and shuts down the worker.
func (a *Aura) Stop() {
	select {
	case <-a.stopCh:
	default:
		close(a.stopCh)
	}
	a.wg.Wait()
}

func (a *Aura) worker() {
	defer a.wg.Done()
	for {
		select {
		case ev := <-a.ch:
			a.write(ev)
		case <-a.stopCh:
			for {
				select {
				case ev := <-a.ch:
					a.write(ev)
				default:
					return
				}
			}
		}
	}
}

func (a *Aura) write(ev *model.AuraEvent) {
	if err := a.db.Create(ev).Error; err != nil {
		a.logger.Error("aura event write failed",
			zap.Int64("user_id", ev.UserID),
			zap.String("kind", ev.Kind),
			zap.Error(err))
	}
}
