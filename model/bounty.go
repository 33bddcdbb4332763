package model

import "time"

// BountyStatus represents the lifecycle state of a bounty.
type BountyStatus = int

const (
	BountyActive  BountyStatus = 0
	BountyClaimed BountyStatus = 1
	BountyExpired BountyStatus = 2
)

// Bounty is a stake placed on a target user's future check-in. The first
// qualifying claim while Active wins; unclaimed bounties expire after
// ExpiresAt and refund the stake to the creator. Claimed and Expired are
// terminal.
type Bounty struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatorID    int64      `gorm:"index:idx_bounty_creator;not null" json:"creator_id"`
	TargetID     int64      `gorm:"index:idx_bounty_target;not null" json:"target_id"`
	FriendshipID int64      `gorm:"not null" json:"friendship_id"`
	Amount       int64      `gorm:"not null" json:"amount"`
	Message      string     `gorm:"type:text" json:"message"`
	Status       int        `gorm:"index:idx_bounty_status;default:0" json:"status"`
	ClaimantID   *int64     `json:"claimant_id"`
	ClaimMessage string     `gorm:"type:text" json:"claim_message"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt    time.Time  `gorm:"index:idx_bounty_expires;not null" json:"expires_at"`
	ClaimedAt    *time.Time `json:"claimed_at"`
}
