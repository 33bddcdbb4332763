package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/aprclub/aprclub/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateBounty stakes amount on target's future check-in. The stake must
// meet the minimum; the friendship gives the bounty its context and the
// target must be one of its participants. Whether the target actually
// owes debt is a soft signal only: a zero-debt target is logged, not
// rejected.
func (s *Service) CreateBounty(ctx context.Context, creatorID, targetID, friendshipID, amount int64, message string) (*model.Bounty, error) {
	if amount < s.cfg.BountyMinimumStake {
		return nil, fmt.Errorf("%w: stake %d below minimum %d", ErrInvalidAmount, amount, s.cfg.BountyMinimumStake)
	}
	if creatorID == targetID {
		return nil, fmt.Errorf("%w: cannot place a bounty on yourself", ErrInvalidState)
	}

	var f model.Friendship
	if err := s.db.WithContext(ctx).First(&f, friendshipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: friendship %d", ErrNotFound, friendshipID)
		}
		return nil, err
	}
	persp := f.PerspectiveOf(targetID)
	if persp == nil {
		return nil, fmt.Errorf("%w: target %d is not part of friendship %d", ErrUnauthorized, targetID, friendshipID)
	}

	now := s.clock().UTC()
	if snap := ComputeDebt(*persp, now); snap.CurrentDebt == 0 {
		s.logger.Debug("bounty placed on debt-free target",
			zap.Int64("target_id", targetID),
			zap.Int64("friendship_id", friendshipID))
	}

	b := &model.Bounty{
		CreatorID:    creatorID,
		TargetID:     targetID,
		FriendshipID: friendshipID,
		Amount:       amount,
		Message:      message,
		Status:       model.BountyActive,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.BountyWindow),
	}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}

	s.notify(ctx, targetID, "bounty_placed", map[string]interface{}{
		"bounty_id":  b.ID,
		"creator_id": creatorID,
		"amount":     amount,
		"expires_at": b.ExpiresAt,
	})
	s.logger.Info("bounty created",
		zap.Int64("bounty_id", b.ID),
		zap.Int64("target_id", targetID),
		zap.Int64("amount", amount))
	return b, nil
}

// ClaimBounty records that the claimant made contact with the target.
// The claim is judged, not proven: any user except the target may file.
// Exactly one claim wins; the transition Active→Claimed is a conditional
// update on status, so racing claimants lose with ErrAlreadyClaimed
// rather than retrying.
func (s *Service) ClaimBounty(ctx context.Context, bountyID, claimantID int64, message string) (*model.Bounty, error) {
	var claimed *model.Bounty
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b model.Bounty
		if err := tx.First(&b, bountyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: bounty %d", ErrNotFound, bountyID)
			}
			return err
		}
		if claimantID == b.TargetID {
			return fmt.Errorf("%w: the target cannot claim their own bounty", ErrUnauthorized)
		}
		now := s.clock().UTC()
		switch b.Status {
		case model.BountyClaimed:
			return fmt.Errorf("%w: bounty %d", ErrAlreadyClaimed, bountyID)
		case model.BountyExpired:
			return fmt.Errorf("%w: bounty expired", ErrInvalidState)
		}
		if !now.Before(b.ExpiresAt) {
			// Past the window but the sweep has not flipped it yet.
			return fmt.Errorf("%w: bounty expired", ErrInvalidState)
		}

		res := tx.Model(&model.Bounty{}).
			Where("id = ? AND status = ?", bountyID, model.BountyActive).
			Updates(map[string]interface{}{
				"status":        model.BountyClaimed,
				"claimant_id":   claimantID,
				"claim_message": message,
				"claimed_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race between our read and the conditional write.
			return fmt.Errorf("%w: bounty %d", ErrAlreadyClaimed, bountyID)
		}

		b.Status = model.BountyClaimed
		b.ClaimantID = &claimantID
		b.ClaimMessage = message
		b.ClaimedAt = &now
		claimed = &b
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reward goes to the external aura ledger, refunding nothing to the
	// creator: the stake was spent.
	s.recordAura(ctx, claimantID, "bounty_reward", claimed.Amount, claimed.FriendshipID)
	s.notify(ctx, claimed.CreatorID, "bounty_claimed", map[string]interface{}{
		"bounty_id":   claimed.ID,
		"claimant_id": claimantID,
	})
	s.notify(ctx, claimed.TargetID, "bounty_claimed", map[string]interface{}{
		"bounty_id":   claimed.ID,
		"claimant_id": claimantID,
	})
	s.logger.Info("bounty claimed",
		zap.Int64("bounty_id", claimed.ID),
		zap.Int64("claimant_id", claimantID))
	return claimed, nil
}

// ExpireDueBounties flips every Active bounty past its deadline to
// Expired and refunds the stake to its creator via the aura ledger.
// Intended as a scheduler tick body; returns how many bounties expired.
func (s *Service) ExpireDueBounties(ctx context.Context) (int, error) {
	now := s.clock().UTC()
	var due []model.Bounty
	if err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", model.BountyActive, now).
		Find(&due).Error; err != nil {
		return 0, err
	}

	expired := 0
	for i := range due {
		b := &due[i]
		res := s.db.WithContext(ctx).Model(&model.Bounty{}).
			Where("id = ? AND status = ?", b.ID, model.BountyActive).
			Update("status", model.BountyExpired)
		if res.Error != nil {
			return expired, res.Error
		}
		if res.RowsAffected == 0 {
			continue // claimed between the scan and the flip
		}
		expired++
		s.recordAura(ctx, b.CreatorID, "bounty_refund", b.Amount, b.FriendshipID)
		s.notify(ctx, b.CreatorID, "bounty_expired", map[string]interface{}{
			"bounty_id": b.ID,
			"amount":    b.Amount,
		})
	}
	if expired > 0 {
		s.logger.Info("bounties expired", zap.Int("count", expired))
	}
	return expired, nil
}

// ListBountiesOnTarget returns all bounties staked on one user, newest
// first.
func (s *Service) ListBountiesOnTarget(ctx context.Context, targetID int64) ([]model.Bounty, error) {
	var rows []model.Bounty
	err := s.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
