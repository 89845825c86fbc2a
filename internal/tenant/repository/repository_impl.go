package repository

import (
	"context"
	"time"

	plandomain "github.com/merchantiq/catalogsync/internal/plan/domain"
	subscriptiondomain "github.com/merchantiq/catalogsync/internal/subscription/domain"
	"github.com/merchantiq/catalogsync/internal/tenant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, tenant *domain.Tenant) error {
	return db.WithContext(ctx).Create(tenant).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, tenant *domain.Tenant) error {
	if tenant == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE tenants
		 SET shop_domain = ?, access_token = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		tenant.ShopDomain,
		tenant.AccessToken,
		tenant.Active,
		tenant.UpdatedAt,
		tenant.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Tenant, error) {
	var t domain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, shop_domain, access_token, active, last_sync_at, next_sync_at, created_at, updated_at
		 FROM tenants WHERE id = ?`,
		id,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) FindByDomain(ctx context.Context, db *gorm.DB, shopDomain string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, shop_domain, access_token, active, last_sync_at, next_sync_at, created_at, updated_at
		 FROM tenants WHERE shop_domain = ?`,
		shopDomain,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

// FindActiveWithPlans loads every active tenant joined to its latest
// subscription and that subscription's plan. Tenants without a usable
// subscription come back with nil Plan so the scheduler can log them as
// unscheduled instead of dropping them silently.
func (r *repo) FindActiveWithPlans(ctx context.Context, db *gorm.DB) ([]domain.TenantWithPlan, error) {
	var tenants []domain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, shop_domain, access_token, active, last_sync_at, next_sync_at, created_at, updated_at
		 FROM tenants WHERE active = ? ORDER BY created_at ASC`,
		true,
	).Scan(&tenants).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.TenantWithPlan, 0, len(tenants))
	for _, t := range tenants {
		entry := domain.TenantWithPlan{Tenant: t}

		var sub subscriptiondomain.Subscription
		err := db.WithContext(ctx).Raw(
			`SELECT id, tenant_id, plan_id, status, ai_queries_used,
			        current_period_start, current_period_end, created_at, updated_at
			 FROM subscriptions WHERE tenant_id = ?
			 ORDER BY created_at DESC LIMIT 1`,
			t.ID,
		).Scan(&sub).Error
		if err != nil {
			return nil, err
		}
		if sub.ID != 0 {
			entry.Subscription = &sub

			var p plandomain.Plan
			err = db.WithContext(ctx).Raw(
				`SELECT id, name, product_limit, sync_cadence, enabled_providers, feature_flags, created_at, updated_at
				 FROM plans WHERE id = ?`,
				sub.PlanID,
			).Scan(&p).Error
			if err != nil {
				return nil, err
			}
			if p.ID != 0 {
				entry.Plan = &p
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *repo) UpdateSyncBookkeeping(ctx context.Context, db *gorm.DB, id int64, lastSyncAt time.Time, nextSyncAt *time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tenants
		 SET last_sync_at = ?, next_sync_at = ?, updated_at = ?
		 WHERE id = ?`,
		lastSyncAt,
		nextSyncAt,
		time.Now().UTC(),
		id,
	).Error
}
