package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aprclub/aprclub/server/cache"
	"github.com/aprclub/aprclub/server/config"
	"github.com/aprclub/aprclub/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockTTL = 10 * time.Second

// Notifier delivers fire-and-forget notifications. Implementations must
// never block the workflow; a delivery failure never rolls back a ledger
// write.
type Notifier interface {
	Notify(ctx context.Context, toUserID int64, typ string, payload map[string]interface{})
}

// AuraRecorder appends achievement signals for the external aura system.
// The ledger never reads them back.
type AuraRecorder interface {
	Record(ctx context.Context, userID int64, kind string, delta int64, friendshipID *int64)
}

// Service owns the friendship debt ledger: the friendship aggregate, its
// derived debt state, and the four mutating workflows. All mutations run
// inside a single DB transaction under a per-friendship cache lock.
type Service struct {
	db       *gorm.DB
	cache    cache.Cache
	cfg      config.LedgerConfig
	notifier Notifier
	aura     AuraRecorder
	logger   *zap.Logger

	// clock is the single time source for debt computation, cooldowns and
	// expiry. Tests pin it to fixed instants.
	clock func() time.Time
}

// NewService creates a new ledger Service.
func NewService(db *gorm.DB, c cache.Cache, cfg config.LedgerConfig, n Notifier, a AuraRecorder, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		cache:    c,
		cfg:      cfg,
		notifier: n,
		aura:     a,
		logger:   logger,
		clock:    time.Now,
	}
}

// PerspectiveView pairs one participant's stored perspective with its
// derived snapshot.
type PerspectiveView struct {
	UserID      int64             `json:"user_id"`
	Perspective model.Perspective `json:"perspective"`
	Snapshot    Snapshot          `json:"snapshot"`
}

// FriendshipView is the read model returned to callers: the aggregate
// plus both derived snapshots, computed fresh at read time.
type FriendshipView struct {
	ID        int64           `json:"id"`
	Status    int             `json:"status"`
	Streak    int             `json:"streak"`
	Mine      PerspectiveView `json:"mine"`
	Theirs    PerspectiveView `json:"theirs"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateFriendship opens a contract between actor and other. Contracts
// are auto-accepted: the friendship is Active immediately with both
// decay clocks anchored at now.
func (s *Service) CreateFriendship(ctx context.Context, actorID, otherID int64) (*model.Friendship, error) {
	if actorID == otherID {
		return nil, fmt.Errorf("%w: cannot befriend yourself", ErrInvalidState)
	}
	now := s.clock().UTC()
	a, b := model.NormalizePair(actorID, otherID)
	f := &model.Friendship{
		UserAID: a,
		UserBID: b,
		Status:  model.FriendshipActive,
		A:       model.Perspective{GraceLimitDays: s.cfg.DefaultGraceDays, LastInteractionAt: now},
		B:       model.Perspective{GraceLimitDays: s.cfg.DefaultGraceDays, LastInteractionAt: now},
	}
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: friendship already exists", ErrInvalidState)
		}
		return nil, err
	}
	s.notify(ctx, otherID, "friendship_created", map[string]interface{}{
		"friendship_id": f.ID,
		"from_user_id":  actorID,
	})
	return f, nil
}

// RemoveFriendship deletes the contract and both perspectives. Appended
// records (check-ins, bailouts) are kept; they are history, not state.
func (s *Service) RemoveFriendship(ctx context.Context, actorID, friendshipID int64) error {
	return s.withFriendshipLock(ctx, friendshipID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			f, err := loadFriendship(tx, friendshipID)
			if err != nil {
				return err
			}
			if f.PerspectiveOf(actorID) == nil {
				return fmt.Errorf("%w: user %d is not a participant", ErrUnauthorized, actorID)
			}
			return tx.Delete(f).Error
		})
	})
}

// BlockFriendship freezes the contract. Blocked friendships reject every
// workflow until unblocked (which the current product does not offer).
func (s *Service) BlockFriendship(ctx context.Context, actorID, friendshipID int64) error {
	return s.withFriendshipLock(ctx, friendshipID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			f, err := loadFriendship(tx, friendshipID)
			if err != nil {
				return err
			}
			if f.PerspectiveOf(actorID) == nil {
				return fmt.Errorf("%w: user %d is not a participant", ErrUnauthorized, actorID)
			}
			return tx.Model(f).Update("status", model.FriendshipBlocked).Error
		})
	})
}

// GetFriendshipView loads one friendship from userID's point of view with
// both snapshots computed at now.
func (s *Service) GetFriendshipView(ctx context.Context, userID, friendshipID int64) (*FriendshipView, error) {
	var f model.Friendship
	if err := s.db.WithContext(ctx).First(&f, friendshipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: friendship %d", ErrNotFound, friendshipID)
		}
		return nil, err
	}
	return s.viewOf(&f, userID)
}

// ListFriendshipViews returns every friendship userID participates in,
// snapshots included.
func (s *Service) ListFriendshipViews(ctx context.Context, userID int64) ([]*FriendshipView, error) {
	var rows []model.Friendship
	if err := s.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	views := make([]*FriendshipView, 0, len(rows))
	for i := range rows {
		v, err := s.viewOf(&rows[i], userID)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Service) viewOf(f *model.Friendship, userID int64) (*FriendshipView, error) {
	mine := f.PerspectiveOf(userID)
	if mine == nil {
		return nil, fmt.Errorf("%w: user %d is not a participant", ErrUnauthorized, userID)
	}
	otherID := f.CounterpartyID(userID)
	theirs := f.PerspectiveOf(otherID)
	now := s.clock().UTC()
	return &FriendshipView{
		ID:     f.ID,
		Status: f.Status,
		Streak: f.Streak,
		Mine: PerspectiveView{
			UserID:      userID,
			Perspective: *mine,
			Snapshot:    ComputeDebt(*mine, now),
		},
		Theirs: PerspectiveView{
			UserID:      otherID,
			Perspective: *theirs,
			Snapshot:    ComputeDebt(*theirs, now),
		},
		CreatedAt: f.CreatedAt,
	}, nil
}

// withFriendshipLock serializes workflows against one friendship row via
// a SetNX cache lock. Contention surfaces as ErrContended immediately;
// nothing is retried.
func (s *Service) withFriendshipLock(ctx context.Context, friendshipID int64, fn func() error) error {
	key := fmt.Sprintf("lock:friendship:%d", friendshipID)
	ok, err := s.cache.SetNX(ctx, key, "1", lockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: friendship %d", ErrContended, friendshipID)
	}
	defer func() { _ = s.cache.Del(ctx, key) }()
	return fn()
}

func loadFriendship(tx *gorm.DB, id int64) (*model.Friendship, error) {
	var f model.Friendship
	if err := tx.First(&f, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: friendship %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &f, nil
}

func (s *Service) notify(ctx context.Context, toUserID int64, typ string, payload map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, toUserID, typ, payload)
}

func (s *Service) recordAura(ctx context.Context, userID int64, kind string, delta int64, friendshipID int64) {
	if s.aura == nil {
		return
	}
	fid := friendshipID
	s.aura.Record(ctx, userID, kind, delta, &fid)
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
