package model

import "time"

// BailoutTransaction is an immutable ledger entry recording a paid
// transfer: the payer takes on Penalty units of debt to remove Amount
// units from the beneficiary. Created in the same transaction as the
// paired perspective mutations.
type BailoutTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FriendshipID  int64     `gorm:"index:idx_bailout_friendship;not null" json:"friendship_id"`
	PayerID       int64     `gorm:"index:idx_bailout_payer;not null" json:"payer_id"`
	BeneficiaryID int64     `gorm:"not null" json:"beneficiary_id"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Penalty       int64     `gorm:"not null" json:"penalty"`
	Message       string    `gorm:"type:text" json:"message"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
