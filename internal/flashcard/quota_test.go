// AngelaMos | 2026
// quota_test.go

package flashcard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthStartUTC(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	local := time.Date(2026, 2, 28, 20, 0, 0, 0, la)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), MonthStartUTC(local))

	assert.Equal(t,
		time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		MonthStartUTC(time.Date(2026, 7, 31, 23, 59, 59, 0, time.UTC)),
	)
}

func TestComputeQuotaInvariants(t *testing.T) {
	for _, plan := range []string{"free", "basic", "pro", "orgs", "mystery"} {
		for _, used := range []int{0, 1, 5, 9, 10, 11, 499, 500, 2000, 10000, 20000} {
			q := ComputeQuota(plan, used)

			if used <= q.Limit {
				assert.Equal(t, q.Limit, q.Used+q.Remaining, "plan=%s used=%d", plan, used)
			}
			if used >= q.Limit {
				assert.Zero(t, q.Remaining, "plan=%s used=%d", plan, used)
				assert.True(t, q.Exhausted())
			}
			assert.Equal(t, min(MaxCardsPerRequest, q.Remaining), q.DesiredCount)
		}
	}
}

func TestComputeQuotaDesiredCount(t *testing.T) {
	assert.Equal(t, 3, ComputeQuota("free", 7).DesiredCount)
	assert.Equal(t, 10, ComputeQuota("pro", 7).DesiredCount)
	assert.Equal(t, 10, ComputeQuota("unknown", 0).Limit)
}
