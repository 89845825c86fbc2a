package domain

import (
	"context"
	"time"

	plandomain "github.com/merchantiq/catalogsync/internal/plan/domain"
	subscriptiondomain "github.com/merchantiq/catalogsync/internal/subscription/domain"
)

// TenantWithPlan joins a tenant to its current subscription and plan.
type TenantWithPlan struct {
	Tenant       Tenant
	Plan         *plandomain.Plan
	Subscription *subscriptiondomain.Subscription
}

// Registry resolves tenants and their plan limits for the sync engine.
type Registry interface {
	// Install creates or reactivates a tenant for a shop domain.
	Install(ctx context.Context, shopDomain, accessToken string) (*Tenant, error)
	// Deactivate flags the tenant inactive and clears its credential.
	Deactivate(ctx context.Context, tenantID int64) error

	GetTenant(ctx context.Context, tenantID int64) (*Tenant, error)
	GetPlan(ctx context.Context, tenantID int64) (*plandomain.Plan, error)
	// InvalidatePlan drops any cached plan for the tenant so the next
	// GetPlan re-reads storage; callers use it when the plan changed.
	InvalidatePlan(tenantID int64)
	GetActiveTenantsWithPlans(ctx context.Context) ([]TenantWithPlan, error)

	// UpdateSyncBookkeeping persists lastSyncAt and the next-sync estimate.
	UpdateSyncBookkeeping(ctx context.Context, tenantID int64, lastSyncAt time.Time, nextSyncAt *time.Time) error
}
