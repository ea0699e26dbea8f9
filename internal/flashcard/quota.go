// AngelaMos | 2026
// quota.go

package flashcard

import (
	"time"

	"github.com/carterperez-dev/flashdeck/internal/subscription"
)

const MaxCardsPerRequest = 10

const QuotaExceededMessage = "Monthly limit reached"

type Quota struct {
	Plan         string `json:"plan"`
	Limit        int    `json:"limit"`
	Used         int    `json:"used"`
	Remaining    int    `json:"remaining"`
	DesiredCount int    `json:"desired_count"`
}

func (q Quota) Exhausted() bool {
	return q.Remaining <= 0
}

func MonthStartUTC(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func ComputeQuota(plan string, used int) Quota {
	limit := subscription.MonthlyCardLimit(plan)
	remaining := max(0, limit-used)

	return Quota{
		Plan:         plan,
		Limit:        limit,
		Used:         used,
		Remaining:    remaining,
		DesiredCount: min(MaxCardsPerRequest, remaining),
	}
}
