package model

import "time"

// Friendship status values.
const (
	FriendshipPending = 0
	FriendshipActive  = 1
	FriendshipBlocked = 2
)

// Perspective is one participant's side of a friendship contract.
// BaseDebt is the debt frozen at the last settlement; it never decays on
// its own. Current debt is always derived from BaseDebt, GraceLimitDays
// and LastInteractionAt at read time, never stored.
type Perspective struct {
	BaseDebt          int64     `gorm:"not null;default:0" json:"base_debt"`
	GraceLimitDays    int       `gorm:"not null;default:7" json:"grace_limit_days"`
	LastInteractionAt time.Time `gorm:"not null" json:"last_interaction_at"`
}

// Friendship is the two-sided accountability contract between exactly two
// users. The pair is stored normalized (UserAID < UserBID) so the unique
// index covers both orderings. Both perspectives live on the same row,
// which makes the bailout dual-write a single-row transaction.
type Friendship struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserAID   int64       `gorm:"uniqueIndex:idx_friendship_pair;not null" json:"user_a_id"`
	UserBID   int64       `gorm:"uniqueIndex:idx_friendship_pair;not null" json:"user_b_id"`
	Status    int         `gorm:"default:0" json:"status"`
	Streak    int         `gorm:"default:0" json:"streak"`
	A         Perspective `gorm:"embedded;embeddedPrefix:a_" json:"a"`
	B         Perspective `gorm:"embedded;embeddedPrefix:b_" json:"b"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// PerspectiveOf returns the perspective owned by userID, or nil if the
// user is not a participant.
func (f *Friendship) PerspectiveOf(userID int64) *Perspective {
	switch userID {
	case f.UserAID:
		return &f.A
	case f.UserBID:
		return &f.B
	}
	return nil
}

// CounterpartyID returns the other participant, or 0 if userID is not a
// participant.
func (f *Friendship) CounterpartyID(userID int64) int64 {
	switch userID {
	case f.UserAID:
		return f.UserBID
	case f.UserBID:
		return f.UserAID
	}
	return 0
}

// NormalizePair orders a user pair so the smaller ID comes first.
func NormalizePair(x, y int64) (int64, int64) {
	if x > y {
		return y, x
	}
	return x, y
}
