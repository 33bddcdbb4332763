package model

import "time"

// CheckinRecord is an append-only fact: one successful check-in by one
// participant. Rows are never updated or deleted.
type CheckinRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FriendshipID int64     `gorm:"index:idx_checkin_friendship;not null" json:"friendship_id"`
	ActorID      int64     `gorm:"index:idx_checkin_actor;not null" json:"actor_id"`
	Proof        string    `gorm:"type:text" json:"proof"`
	Streak       int       `gorm:"not null" json:"streak"` // shared streak value after this check-in
	CreatedAt    time.Time `gorm:"index:idx_checkin_created;autoCreateTime" json:"created_at"`
}
