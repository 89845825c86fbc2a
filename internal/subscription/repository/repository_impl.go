package repository

import (
	"context"

	"github.com/merchantiq/catalogsync/internal/subscription/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB *gorm.DB
}

type repo struct {
	db *gorm.DB
}

func Provide(p Params) domain.Repository {
	return &repo{db: p.DB}
}

func (r *repo) FindByTenant(ctx context.Context, tenantID int64) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, plan_id, status, ai_queries_used,
		        current_period_start, current_period_end, created_at, updated_at
		 FROM subscriptions
		 WHERE tenant_id = ?
		 ORDER BY created_at DESC
		 LIMIT 1`,
		tenantID,
	).Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}
