package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/merchantiq/catalogsync/internal/cache"
	plandomain "github.com/merchantiq/catalogsync/internal/plan/domain"
	subscriptiondomain "github.com/merchantiq/catalogsync/internal/subscription/domain"
	"github.com/merchantiq/catalogsync/internal/tenant/domain"
	"github.com/merchantiq/catalogsync/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const planCacheTTL = 5 * time.Minute

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	PlanRepo plandomain.Repository
	SubRepo  subscriptiondomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	planRepo  plandomain.Repository
	subRepo   subscriptiondomain.Repository
	planCache cache.Cache[string, *plandomain.Plan]
}

func New(p Params) domain.Registry {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("tenant.registry"),
		genID:     p.GenID,
		repo:      p.Repo,
		planRepo:  p.PlanRepo,
		subRepo:   p.SubRepo,
		planCache: cache.NewTTLCache[string, *plandomain.Plan](),
	}
}

func (s *Service) Install(ctx context.Context, shopDomain, accessToken string) (*domain.Tenant, error) {
	shopDomain = strings.ToLower(strings.TrimSpace(shopDomain))
	if shopDomain == "" {
		return nil, domain.ErrInvalidDomain
	}

	now := time.Now().UTC()
	existing, err := s.repo.FindByDomain(ctx, s.db, shopDomain)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.AccessToken = accessToken
		existing.Active = true
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, s.db, existing); err != nil {
			return nil, err
		}
		s.log.Info("tenant reactivated", zap.Int64("tenant_id", existing.ID), zap.String("shop_domain", shopDomain))
		return existing, nil
	}

	t := &domain.Tenant{
		ID:          s.genID.Generate().Int64(),
		ShopDomain:  shopDomain,
		AccessToken: accessToken,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, s.db, t); err != nil {
		// two installs racing on the same shop domain: the loser adopts
		// the winner's row
		if db.IsDuplicateKeyErr(err) {
			return s.Install(ctx, shopDomain, accessToken)
		}
		return nil, err
	}
	s.log.Info("tenant installed", zap.Int64("tenant_id", t.ID), zap.String("shop_domain", shopDomain))
	return t, nil
}

func (s *Service) Deactivate(ctx context.Context, tenantID int64) error {
	t, err := s.repo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return err
	}
	if t == nil {
		return domain.ErrTenantNotFound
	}

	t.Active = false
	t.AccessToken = ""
	t.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, t); err != nil {
		return err
	}
	s.planCache.Delete(planCacheKey(tenantID))
	s.log.Info("tenant deactivated", zap.Int64("tenant_id", tenantID))
	return nil
}

func (s *Service) GetTenant(ctx context.Context, tenantID int64) (*domain.Tenant, error) {
	return s.repo.FindByID(ctx, s.db, tenantID)
}

func (s *Service) GetPlan(ctx context.Context, tenantID int64) (*plandomain.Plan, error) {
	if cached, ok := s.planCache.Get(planCacheKey(tenantID)); ok {
		return cached, nil
	}

	sub, err := s.subRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, nil
	}
	p, err := s.planRepo.FindByID(ctx, s.db, sub.PlanID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		s.planCache.Set(planCacheKey(tenantID), p, planCacheTTL)
	}
	return p, nil
}

func (s *Service) InvalidatePlan(tenantID int64) {
	s.planCache.Delete(planCacheKey(tenantID))
}

func (s *Service) GetActiveTenantsWithPlans(ctx context.Context) ([]domain.TenantWithPlan, error) {
	return s.repo.FindActiveWithPlans(ctx, s.db)
}

func (s *Service) UpdateSyncBookkeeping(ctx context.Context, tenantID int64, lastSyncAt time.Time, nextSyncAt *time.Time) error {
	return s.repo.UpdateSyncBookkeeping(ctx, s.db, tenantID, lastSyncAt, nextSyncAt)
}

func planCacheKey(tenantID int64) string {
	return "plan:" + strconv.FormatInt(tenantID, 10)
}
