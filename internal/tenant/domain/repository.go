package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	Update(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Tenant, error)
	FindByDomain(ctx context.Context, db *gorm.DB, shopDomain string) (*Tenant, error)
	FindActiveWithPlans(ctx context.Context, db *gorm.DB) ([]TenantWithPlan, error)
	UpdateSyncBookkeeping(ctx context.Context, db *gorm.DB, id int64, lastSyncAt time.Time, nextSyncAt *time.Time) error
}
