package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aprclub/aprclub/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CheckinResult reports the outcome of a successful check-in.
type CheckinResult struct {
	Record   *model.CheckinRecord `json:"record"`
	Streak   int                  `json:"streak"`
	Snapshot Snapshot             `json:"snapshot"`
}

// Checkin is the only way a participant resets their own decay clock.
// One successful check-in per actor per UTC calendar day; a second
// attempt fails with ErrAlreadyCheckedIn and leaves the ledger unchanged.
// The actor's base debt resets to zero, the shared streak advances when
// the previous check-in (by either side) was yesterday, and an immutable
// CheckinRecord is appended.
func (s *Service) Checkin(ctx context.Context, friendshipID, actorID int64, proof string) (*CheckinResult, error) {
	var result *CheckinResult
	var counterparty int64
	err := s.withFriendshipLock(ctx, friendshipID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			f, err := loadFriendship(tx, friendshipID)
			if err != nil {
				return err
			}
			persp := f.PerspectiveOf(actorID)
			if persp == nil {
				return fmt.Errorf("%w: user %d is not a participant", ErrUnauthorized, actorID)
			}
			if f.Status != model.FriendshipActive {
				return fmt.Errorf("%w: friendship is not active", ErrInvalidState)
			}
			counterparty = f.CounterpartyID(actorID)

			now := s.clock().UTC()

			// Cooldown: the actor's latest check-in must not be today.
			var lastOwn model.CheckinRecord
			err = tx.Where("friendship_id = ? AND actor_id = ?", friendshipID, actorID).
				Order("created_at DESC").First(&lastOwn).Error
			if err == nil && sameUTCDay(lastOwn.CreatedAt, now) {
				return fmt.Errorf("%w: next check-in opens tomorrow", ErrAlreadyCheckedIn)
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			// Streak is shared: it advances off the latest check-in by
			// either participant.
			streak := 1
			var lastAny model.CheckinRecord
			err = tx.Where("friendship_id = ?", friendshipID).
				Order("created_at DESC").First(&lastAny).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				// first check-in ever
			case err != nil:
				return err
			case sameUTCDay(lastAny.CreatedAt, now):
				streak = f.Streak
			case sameUTCDay(lastAny.CreatedAt, now.AddDate(0, 0, -1)):
				streak = f.Streak + 1
			}

			persp.BaseDebt = 0
			persp.LastInteractionAt = now
			f.Streak = streak
			if err := tx.Save(f).Error; err != nil {
				return err
			}

			record := &model.CheckinRecord{
				FriendshipID: friendshipID,
				ActorID:      actorID,
				Proof:        proof,
				Streak:       streak,
				CreatedAt:    now,
			}
			if err := tx.Create(record).Error; err != nil {
				return err
			}

			result = &CheckinResult{
				Record:   record,
				Streak:   streak,
				Snapshot: ComputeDebt(*persp, now),
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, counterparty, "friend_checked_in", map[string]interface{}{
		"friendship_id": friendshipID,
		"actor_id":      actorID,
		"streak":        result.Streak,
	})
	s.recordAura(ctx, actorID, "checkin", 1, friendshipID)

	s.logger.Info("checkin recorded",
		zap.Int64("friendship_id", friendshipID),
		zap.Int64("actor_id", actorID),
		zap.Int("streak", result.Streak))
	return result, nil
}

// sameUTCDay reports whether two instants fall on the same UTC calendar day.
func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
