package ledger

import (
	"time"

	"github.com/aprclub/aprclub/server/model"
)

// Snapshot is the derived state of one perspective at an instant. It is
// recomputed on every read and never persisted; storing it would require
// a decay ticker and would go stale between ticks.
type Snapshot struct {
	BaseDebt            int64 `json:"base_debt"`
	DaysMissed          int64 `json:"days_missed"`
	DaysOverLimit       int64 `json:"days_over_limit"`
	CurrentDebt         int64 `json:"current_debt"`
	BankruptcyThreshold int64 `json:"bankruptcy_threshold"`
	IsBankrupt          bool  `json:"is_bankrupt"`
	IsInWarningZone     bool  `json:"is_in_warning_zone"`
	DaysUntilBankrupt   int64 `json:"days_until_bankrupt"`
}

// ComputeDebt derives the current debt state of a perspective. Pure: no
// I/O, defined for all non-negative inputs. The grace period is absolute,
// zero decay accrues while inside it. Bankruptcy begins at twice the
// grace limit.
func ComputeDebt(p model.Perspective, now time.Time) Snapshot {
	elapsed := now.Sub(p.LastInteractionAt)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	daysMissed := int64(elapsed / (24 * time.Hour))

	daysOver := daysMissed - int64(p.GraceLimitDays)
	if daysOver < 0 {
		daysOver = 0
	}

	current := p.BaseDebt + daysOver
	threshold := 2 * int64(p.GraceLimitDays)

	until := threshold - current
	if until < 0 {
		until = 0
	}

	return Snapshot{
		BaseDebt:            p.BaseDebt,
		DaysMissed:          daysMissed,
		DaysOverLimit:       daysOver,
		CurrentDebt:         current,
		BankruptcyThreshold: threshold,
		IsBankrupt:          current >= threshold,
		IsInWarningZone:     current >= int64(p.GraceLimitDays) && current < threshold,
		DaysUntilBankrupt:   until,
	}
}
