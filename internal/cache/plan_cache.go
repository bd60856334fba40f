package cache

import (
	"time"

	plandomain "github.com/smallbiznis/cicilan/internal/paymentplan/domain"
)

const (
	defaultPlanTTL = 5 * time.Minute
	activePlansKey = "active"
)

// PlanCache keeps the active plan catalog hot for the calculator routes.
type PlanCache interface {
	GetActive() ([]plandomain.PaymentPlan, bool)
	SetActive(plans []plandomain.PaymentPlan)
	Invalidate()
}

type planCache struct {
	plans Cache[string, []plandomain.PaymentPlan]
	ttl   time.Duration
}

func NewPlanCache() PlanCache {
	return &planCache{
		plans: NewTTLCache[string, []plandomain.PaymentPlan](),
		ttl:   defaultPlanTTL,
	}
}

func (c *planCache) GetActive() ([]plandomain.PaymentPlan, bool) {
	return c.plans.Get(activePlansKey)
}

func (c *planCache) SetActive(plans []plandomain.PaymentPlan) {
	c.plans.Set(activePlansKey, plans, c.ttl)
}

func (c *planCache) Invalidate() {
	c.plans.Purge()
}
