// AngelaMos | 2026
// plan.go

package subscription

import (
	"fmt"
	"strings"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/middleware"
	"github.com/carterperez-dev/flashdeck/internal/user"
)

var monthlyCardLimits = map[string]int{
	user.PlanFree:  10,
	user.PlanBasic: 500,
	user.PlanPro:   2000,
	user.PlanOrgs:  10000,
}

// MonthlyCardLimit returns how many flashcards the plan may create per UTC
// calendar month. Unknown or empty plans get the free allowance.
func MonthlyCardLimit(plan string) int {
	if limit, ok := monthlyCardLimits[plan]; ok {
		return limit
	}
	return monthlyCardLimits[user.PlanFree]
}

// GenerationLimits bounds calls to the AI generation route per plan. The
// monthly card quota is enforced separately.
var GenerationLimits = middleware.PlanLimits{
	Scope:   "generate",
	Default: user.PlanFree,
	Limits: map[string]redis_rate.Limit{
		user.PlanFree:  middleware.PerMinute(5, 2),
		user.PlanBasic: middleware.PerMinute(20, 5),
		user.PlanPro:   middleware.PerMinute(60, 10),
		user.PlanOrgs:  middleware.PerMinute(120, 20),
	},
}

func IsProPlan(plan string) bool {
	switch plan {
	case user.PlanBasic, user.PlanPro, user.PlanOrgs:
		return true
	}
	return false
}

// Prices are in the currency's minor unit.
var prices = map[string]map[string]map[string]int64{
	"usd": {
		user.PlanBasic: {user.CycleMonthly: 499, user.CycleYearly: 4990},
		user.PlanPro:   {user.CycleMonthly: 999, user.CycleYearly: 9990},
		user.PlanOrgs:  {user.CycleMonthly: 4999, user.CycleYearly: 49990},
	},
	"inr": {
		user.PlanBasic: {user.CycleMonthly: 39900, user.CycleYearly: 399000},
		user.PlanPro:   {user.CycleMonthly: 79900, user.CycleYearly: 799000},
		user.PlanOrgs:  {user.CycleMonthly: 399900, user.CycleYearly: 3999000},
	},
}

func Price(plan, cycle, currency string) (int64, error) {
	byPlan, ok := prices[strings.ToLower(currency)]
	if !ok {
		return 0, fmt.Errorf("price: unsupported currency %q: %w", currency, core.ErrInvalidInput)
	}

	byCycle, ok := byPlan[plan]
	if !ok {
		return 0, fmt.Errorf("price: plan %q is not purchasable: %w", plan, core.ErrInvalidInput)
	}

	amount, ok := byCycle[cycle]
	if !ok {
		return 0, fmt.Errorf("price: unknown billing cycle %q: %w", cycle, core.ErrInvalidInput)
	}

	return amount, nil
}

type PlanPrice struct {
	Plan             string `json:"plan"`
	MonthlyCardLimit int    `json:"monthly_card_limit"`
	Currency         string `json:"currency"`
	Monthly          int64  `json:"monthly"`
	Yearly           int64  `json:"yearly"`
}

func Catalog(currency string) []PlanPrice {
	byPlan, ok := prices[strings.ToLower(currency)]
	if !ok {
		return nil
	}

	plans := []string{user.PlanBasic, user.PlanPro, user.PlanOrgs}
	catalog := make([]PlanPrice, 0, len(plans))
	for _, plan := range plans {
		catalog = append(catalog, PlanPrice{
			Plan:             plan,
			MonthlyCardLimit: MonthlyCardLimit(plan),
			Currency:         strings.ToLower(currency),
			Monthly:          byPlan[plan][user.CycleMonthly],
			Yearly:           byPlan[plan][user.CycleYearly],
		})
	}
	return catalog
}

// NextPeriod returns the subscription window bought at now. Renewing the
// same plan while it is still running extends from the current end.
func NextPeriod(u *user.User, plan, cycle string, now time.Time) (time.Time, time.Time) {
	start := now
	base := now

	status := Resolve(u, now)
	if status.IsActive && status.Plan == plan && u.SubscriptionEndsAt != nil {
		base = *u.SubscriptionEndsAt
		if u.SubscriptionStartedAt != nil {
			start = *u.SubscriptionStartedAt
		}
	}

	if cycle == user.CycleYearly {
		return start, base.AddDate(1, 0, 0)
	}
	return start, base.AddDate(0, 1, 0)
}
