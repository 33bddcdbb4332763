package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/aprclub/aprclub/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MercyResponse is the creditor's verdict on a petition.
type MercyResponse string

const (
	MercyRespondGrant   MercyResponse = "grant"
	MercyRespondDecline MercyResponse = "decline"
	MercyRespondCounter MercyResponse = "counter"
)

// FileMercyPetition opens a forgiveness request. Only a bankrupt
// participant may file, and only one pending petition per requester per
// friendship may exist at a time.
func (s *Service) FileMercyPetition(ctx context.Context, friendshipID, requesterID int64, message string) (*model.MercyPetition, error) {
	var petition *model.MercyPetition
	var targetID int64
	err := s.withFriendshipLock(ctx, friendshipID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			f, err := loadFriendship(tx, friendshipID)
			if err != nil {
				return err
			}
			persp := f.PerspectiveOf(requesterID)
			if persp == nil {
				return fmt.Errorf("%w: user %d is not a participant", ErrUnauthorized, requesterID)
			}
			if f.Status != model.FriendshipActive {
				return fmt.Errorf("%w: friendship is not active", ErrInvalidState)
			}
			snap := ComputeDebt(*persp, s.clock().UTC())
			if !snap.IsBankrupt {
				return fmt.Errorf("%w: mercy is for the bankrupt", ErrInvalidState)
			}

			var existing model.MercyPetition
			err = tx.Where("friendship_id = ? AND requester_id = ? AND status = ?",
				friendshipID, requesterID, model.MercyPending).First(&existing).Error
			if err == nil {
				return fmt.Errorf("%w: petition %d is still pending", ErrInvalidState, existing.ID)
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			targetID = f.CounterpartyID(requesterID)
			petition = &model.MercyPetition{
				FriendshipID: friendshipID,
				RequesterID:  requesterID,
				TargetID:     targetID,
				Message:      message,
				Status:       model.MercyPending,
			}
			return tx.Create(petition).Error
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, targetID, "mercy_requested", map[string]interface{}{
		"petition_id":   petition.ID,
		"friendship_id": friendshipID,
		"requester_id":  requesterID,
		"message":       message,
	})
	s.logger.Info("mercy petition filed",
		zap.Int64("petition_id", petition.ID),
		zap.Int64("friendship_id", friendshipID),
		zap.Int64("requester_id", requesterID))
	return petition, nil
}

// RespondMercyPetition resolves a pending petition. Grant settles the
// requester's debt to zero; Decline and Counter leave the ledger
// untouched. The condition text accompanies a Counter and is purely
// informational, the ledger never enforces it. Resolved petitions are
// terminal.
func (s *Service) RespondMercyPetition(ctx context.Context, petitionID, responderID int64, response MercyResponse, condition string) (*model.MercyPetition, error) {
	// Peek at the petition to learn which friendship to lock; everything
	// is re-validated inside the transaction.
	var peek model.MercyPetition
	if err := s.db.WithContext(ctx).First(&peek, petitionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: petition %d", ErrNotFound, petitionID)
		}
		return nil, err
	}

	var petition *model.MercyPetition
	err := s.withFriendshipLock(ctx, peek.FriendshipID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var p model.MercyPetition
			if err := tx.First(&p, petitionID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: petition %d", ErrNotFound, petitionID)
				}
				return err
			}
			return s.resolvePetition(tx, &p, responderID, response, condition, &petition)
		})
	})
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"petition_id":   petition.ID,
		"friendship_id": petition.FriendshipID,
		"status":        petition.Status,
	}
	if petition.Status == model.MercyCountered {
		payload["condition"] = petition.Condition
	}
	s.notify(ctx, petition.RequesterID, "mercy_resolved", payload)
	if petition.Status == model.MercyGranted {
		s.recordAura(ctx, responderID, "mercy_granted", 1, petition.FriendshipID)
	}
	s.logger.Info("mercy petition resolved",
		zap.Int64("petition_id", petition.ID),
		zap.Int("status", petition.Status))
	return petition, nil
}

func (s *Service) resolvePetition(tx *gorm.DB, p *model.MercyPetition, responderID int64, response MercyResponse, condition string, out **model.MercyPetition) error {
	if p.TargetID != responderID {
		return fmt.Errorf("%w: only the creditor may respond", ErrUnauthorized)
	}
	if p.Status != model.MercyPending {
		return fmt.Errorf("%w: petition already resolved", ErrInvalidState)
	}

	now := s.clock().UTC()
	switch response {
	case MercyRespondGrant:
		p.Status = model.MercyGranted
		f, err := loadFriendship(tx, p.FriendshipID)
		if err != nil {
			return err
		}
		persp := f.PerspectiveOf(p.RequesterID)
		if persp == nil {
			return fmt.Errorf("%w: requester left the friendship", ErrInvalidState)
		}
		// Grant is a settlement: the slate and the decay anchor both
		// reset, otherwise the forgiven party would still read as
		// bankrupt from accrued days alone.
		persp.BaseDebt = 0
		persp.LastInteractionAt = now
		if err := tx.Save(f).Error; err != nil {
			return err
		}
	case MercyRespondDecline:
		p.Status = model.MercyDeclined
	case MercyRespondCounter:
		p.Status = model.MercyCountered
		p.Condition = condition
	default:
		return fmt.Errorf("%w: unknown response %q", ErrInvalidState, response)
	}

	p.ResolvedAt = &now
	if err := tx.Save(p).Error; err != nil {
		return err
	}
	*out = p
	return nil
}
