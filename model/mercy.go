package model

import "time"

// MercyStatus represents the resolution state of a mercy petition.
type MercyStatus = int

const (
	MercyPending   MercyStatus = 0
	MercyGranted   MercyStatus = 1
	MercyDeclined  MercyStatus = 2
	MercyCountered MercyStatus = 3
)

// MercyPetition is a bankrupt party's request for debt forgiveness from
// their creditor. Pending is the only non-terminal state; a resolved
// petition is never reopened.
type MercyPetition struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	FriendshipID int64      `gorm:"index:idx_mercy_friendship;not null" json:"friendship_id"`
	RequesterID  int64      `gorm:"index:idx_mercy_requester;not null" json:"requester_id"`
	TargetID     int64      `gorm:"index:idx_mercy_target;not null" json:"target_id"`
	Message      string     `gorm:"type:text" json:"message"`
	Status       int        `gorm:"default:0" json:"status"`
	Condition    string     `gorm:"type:text" json:"condition"` // set when countered
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at"`
}
