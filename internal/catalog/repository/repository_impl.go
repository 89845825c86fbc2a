package repository

import (
	"context"
	"strings"

	"github.com/merchantiq/catalogsync/internal/catalog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type repo struct {
	db  *gorm.DB
	log *zap.Logger
}

func Provide(p Params) domain.Repository {
	return &repo{
		db:  p.DB,
		log: p.Log.Named("catalog.repository"),
	}
}

// upsertColumns are the mutable fields replaced on conflict. Internal
// bookkeeping (id, created_at) is deliberately left untouched.
var upsertColumns = []string{
	"title",
	"description",
	"price",
	"compare_at_price",
	"vendor",
	"product_type",
	"tags",
	"images",
	"variants",
	"in_stock",
	"last_synced_at",
	"updated_at",
}

func (r *repo) UpsertBatch(ctx context.Context, tenantID int64, items []domain.Product) (domain.BatchResult, error) {
	result := domain.BatchResult{}

	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}

	for i := range items {
		item := items[i]
		if item.TenantID != tenantID {
			item.TenantID = tenantID
		}
		if item.ExternalID == "" {
			result.Errors = append(result.Errors, domain.ItemError{Err: domain.ErrMissingExternalID})
			continue
		}

		err := r.db.WithContext(ctx).Clauses(conflict).Create(&item).Error
		if err != nil {
			r.log.Warn("product upsert failed",
				zap.Int64("tenant_id", tenantID),
				zap.String("external_id", item.ExternalID),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, domain.ItemError{ExternalID: item.ExternalID, Err: err})
			continue
		}
		result.Upserted++
	}

	return result, nil
}

func (r *repo) FindByTenant(ctx context.Context, tenantID int64, q domain.Query) ([]domain.Product, int64, error) {
	stmt := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("tenant_id = ?", tenantID)

	if search := strings.TrimSpace(q.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		stmt = stmt.Where("LOWER(title) LIKE ? OR LOWER(vendor) LIKE ?", like, like)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize < 1 || pageSize > 250 {
		pageSize = 50
	}

	var items []domain.Product
	err := stmt.
		Order("external_id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) CountByTenant(ctx context.Context, tenantID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error
	return total, err
}
