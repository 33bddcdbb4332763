package model

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is a persisted in-app notification. Delivery is
// fire-and-forget: a failed insert never rolls back the ledger mutation
// that produced it.
type Notification struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ToUserID  int64          `gorm:"index:idx_notification_to;not null" json:"to_user_id"`
	Type      string         `gorm:"size:32;not null" json:"type"`
	Payload   datatypes.JSON `json:"payload"`
	ReadAt    *time.Time     `json:"read_at"`
	CreatedAt time.Time      `gorm:"index:idx_notification_created;autoCreateTime" json:"created_at"`
}

// AuraEvent is an append-only achievement signal emitted by workflow
// outcomes. The ledger writes these for the aura system to consume and
// never reads them back.
type AuraEvent struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64     `gorm:"index:idx_aura_user;not null" json:"user_id"`
	Kind         string    `gorm:"size:32;not null" json:"kind"`
	Delta        int64     `gorm:"not null" json:"delta"`
	FriendshipID *int64    `json:"friendship_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
