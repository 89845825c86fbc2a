package domain

import "context"

// Decision is the outcome of a quota/plan check.
type Decision struct {
	Allowed bool
	Reason  string
}

const (
	ReasonNoSubscription = "no_subscription"
	ReasonInactive       = "subscription_inactive"
)

// Gate answers whether a tenant may perform billed work. Implementations
// must be side-effect-free; counter increments belong to the caller.
type Gate interface {
	CheckAllowed(ctx context.Context, tenantID int64) (Decision, error)
}

type Repository interface {
	FindByTenant(ctx context.Context, tenantID int64) (*Subscription, error)
}
