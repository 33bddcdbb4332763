package ledger

import (
	"testing"
	"time"

	"github.com/aprclub/aprclub/server/model"
	"github.com/stretchr/testify/assert"
)

func persp(baseDebt int64, grace int, daysSilent int) model.Perspective {
	return model.Perspective{
		BaseDebt:          baseDebt,
		GraceLimitDays:    grace,
		LastInteractionAt: testNow.AddDate(0, 0, -daysSilent),
	}
}

func TestComputeDebt(t *testing.T) {
	cases := []struct {
		name         string
		p            model.Perspective
		wantOver     int64
		wantCurrent  int64
		wantBankrupt bool
		wantWarning  bool
	}{
		{"inside grace", persp(0, 7, 5), 0, 0, false, false},
		{"at grace boundary", persp(0, 7, 7), 0, 0, false, false},
		{"three days over", persp(0, 7, 10), 3, 3, false, false},
		{"warning begins at grace units", persp(0, 7, 14), 7, 7, false, true},
		{"last day of warning", persp(0, 7, 20), 13, 13, false, true},
		{"bankrupt at twice grace", persp(0, 7, 21), 14, 14, true, false},
		{"deep bankruptcy", persp(0, 7, 40), 33, 33, true, false},
		{"base debt alone can bankrupt", persp(14, 7, 0), 0, 14, true, false},
		{"base debt plus decay", persp(4, 7, 10), 3, 7, false, true},
		{"fresh interaction", persp(0, 7, 0), 0, 0, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := ComputeDebt(tc.p, testNow)
			assert.Equal(t, tc.wantOver, snap.DaysOverLimit)
			assert.Equal(t, tc.wantCurrent, snap.CurrentDebt)
			assert.Equal(t, tc.wantBankrupt, snap.IsBankrupt)
			assert.Equal(t, tc.wantWarning, snap.IsInWarningZone)
			assert.Equal(t, int64(14), snap.BankruptcyThreshold)
			// A perspective is never bankrupt and in the warning zone at once.
			assert.False(t, snap.IsBankrupt && snap.IsInWarningZone)
		})
	}
}

func TestComputeDebt_GraceIsAbsolute(t *testing.T) {
	// No decay of any kind inside the grace window, whatever the base debt.
	for days := 0; days <= 7; days++ {
		snap := ComputeDebt(persp(3, 7, days), testNow)
		assert.Equal(t, int64(0), snap.DaysOverLimit, "day %d", days)
		assert.Equal(t, int64(3), snap.CurrentDebt, "day %d", days)
	}
}

func TestComputeDebt_PartialDaysDoNotCount(t *testing.T) {
	p := model.Perspective{
		GraceLimitDays:    7,
		LastInteractionAt: testNow.Add(-(7*24 + 23) * time.Hour), // 7d23h
	}
	snap := ComputeDebt(p, testNow)
	assert.Equal(t, int64(7), snap.DaysMissed)
	assert.Equal(t, int64(0), snap.DaysOverLimit)
}

func TestComputeDebt_DaysUntilBankrupt(t *testing.T) {
	snap := ComputeDebt(persp(0, 7, 10), testNow) // currentDebt=3
	assert.Equal(t, int64(11), snap.DaysUntilBankrupt)

	snap = ComputeDebt(persp(0, 7, 30), testNow) // already bankrupt
	assert.Equal(t, int64(0), snap.DaysUntilBankrupt)
}

func TestComputeDebt_FutureAnchorTolerated(t *testing.T) {
	// Clock skew may put the anchor slightly in the future; the formula
	// must stay defined instead of going negative.
	p := model.Perspective{GraceLimitDays: 7, LastInteractionAt: testNow.Add(time.Hour)}
	snap := ComputeDebt(p, testNow)
	assert.Equal(t, int64(0), snap.CurrentDebt)
	assert.False(t, snap.IsBankrupt)
}
