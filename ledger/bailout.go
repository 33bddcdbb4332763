package ledger

import (
	"context"
	"fmt"
	"math"

	"github.com/aprclub/aprclub/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BailoutResult reports a completed bailout with both updated snapshots.
type BailoutResult struct {
	Transaction *model.BailoutTransaction `json:"transaction"`
	Payer       Snapshot                  `json:"payer"`
	Beneficiary Snapshot                  `json:"beneficiary"`
}

// Bailout lets the counterparty pay down the other side's debt at a
// cost: the payer absorbs ceil(amount * penaltyRate) units of new base
// debt. Both perspectives live on one friendship row, so the dual write
// commits or fails as a unit. The transfer never resets the
// beneficiary's decay clock; only their own check-in does that.
func (s *Service) Bailout(ctx context.Context, friendshipID, payerID, amount int64, message string) (*BailoutResult, error) {
	var result *BailoutResult
	var beneficiaryID int64
	err := s.withFriendshipLock(ctx, friendshipID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			f, err := loadFriendship(tx, friendshipID)
			if err != nil {
				return err
			}
			payer := f.PerspectiveOf(payerID)
			if payer == nil {
				return fmt.Errorf("%w: user %d is not a participant", ErrUnauthorized, payerID)
			}
			if f.Status != model.FriendshipActive {
				return fmt.Errorf("%w: friendship is not active", ErrInvalidState)
			}
			beneficiaryID = f.CounterpartyID(payerID)
			beneficiary := f.PerspectiveOf(beneficiaryID)

			now := s.clock().UTC()
			benSnap := ComputeDebt(*beneficiary, now)
			if amount <= 0 || amount > benSnap.CurrentDebt {
				return fmt.Errorf("%w: amount %d outside (0, %d]", ErrInvalidAmount, amount, benSnap.CurrentDebt)
			}

			penalty := int64(math.Ceil(float64(amount) * s.cfg.BailoutPenaltyRate))

			// Payer capacity: taking on the penalty must not push the
			// payer into bankruptcy themselves.
			paySnap := ComputeDebt(*payer, now)
			if paySnap.CurrentDebt+penalty >= paySnap.BankruptcyThreshold {
				return fmt.Errorf("%w: penalty %d exceeds payer capacity", ErrInvalidAmount, penalty)
			}

			beneficiary.BaseDebt -= amount
			if beneficiary.BaseDebt < 0 {
				beneficiary.BaseDebt = 0
			}
			payer.BaseDebt += penalty
			if err := tx.Save(f).Error; err != nil {
				return err
			}

			txn := &model.BailoutTransaction{
				FriendshipID:  friendshipID,
				PayerID:       payerID,
				BeneficiaryID: beneficiaryID,
				Amount:        amount,
				Penalty:       penalty,
				Message:       message,
				CreatedAt:     now,
			}
			if err := tx.Create(txn).Error; err != nil {
				return err
			}

			result = &BailoutResult{
				Transaction: txn,
				Payer:       ComputeDebt(*payer, now),
				Beneficiary: ComputeDebt(*beneficiary, now),
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, beneficiaryID, "bailout_received", map[string]interface{}{
		"friendship_id": friendshipID,
		"payer_id":      payerID,
		"amount":        amount,
		"message":       message,
	})
	s.recordAura(ctx, payerID, "bailout_given", amount, friendshipID)

	s.logger.Info("bailout committed",
		zap.Int64("friendship_id", friendshipID),
		zap.Int64("payer_id", payerID),
		zap.Int64("amount", amount),
		zap.Int64("penalty", result.Transaction.Penalty))
	return result, nil
}
