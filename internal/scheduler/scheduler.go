// Package scheduler owns one cancellable recurring sync timer per tenant.
// The interval comes from the tenant's plan cadence; tenants without a
// recognized cadence are simply unscheduled.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	obsmetrics "github.com/merchantiq/catalogsync/internal/observability/metrics"
	plandomain "github.com/merchantiq/catalogsync/internal/plan/domain"
	"github.com/merchantiq/catalogsync/internal/syncrun"
	tenantdomain "github.com/merchantiq/catalogsync/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	Registry     tenantdomain.Registry
	Orchestrator *syncrun.Orchestrator
}

type tenantTimer struct {
	interval time.Duration
	stop     chan struct{}
}

// Scheduler is the explicitly owned timer registry. All map mutations are
// serialized so cancel-old-install-new is atomic per tenant id.
type Scheduler struct {
	log          *zap.Logger
	registry     tenantdomain.Registry
	orchestrator *syncrun.Orchestrator

	mu     sync.Mutex
	timers map[int64]*tenantTimer

	// newTicker is replaced in tests so fires can be driven manually.
	newTicker func(d time.Duration) (<-chan time.Time, func())
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:          p.Log.Named("scheduler"),
		registry:     p.Registry,
		orchestrator: p.Orchestrator,
		timers:       make(map[int64]*tenantTimer),
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// ScheduleTenant cancels any existing timer for the tenant and installs a
// new recurring one derived from the plan cadence. A missing plan or an
// unrecognized cadence leaves the tenant unscheduled; that is not an error.
func (s *Scheduler) ScheduleTenant(tenant *tenantdomain.Tenant, plan *plandomain.Plan) {
	if tenant == nil {
		return
	}
	log := s.log.With(zap.Int64("tenant_id", tenant.ID), zap.String("shop_domain", tenant.ShopDomain))

	if plan == nil {
		s.UnscheduleTenant(tenant.ID)
		log.Info("tenant has no plan, leaving unscheduled")
		return
	}
	interval, ok := plan.SyncCadence.Interval()
	if !ok {
		s.UnscheduleTenant(tenant.ID)
		log.Info("unrecognized sync cadence, leaving unscheduled",
			zap.String("cadence", string(plan.SyncCadence)),
		)
		return
	}

	timer := &tenantTimer{interval: interval, stop: make(chan struct{})}

	s.mu.Lock()
	if old, exists := s.timers[tenant.ID]; exists {
		close(old.stop)
	}
	s.timers[tenant.ID] = timer
	count := len(s.timers)
	s.mu.Unlock()

	go s.runTimer(tenant.ID, timer)

	obsmetrics.Sync().SetScheduledTenants(count)
	log.Info("tenant scheduled",
		zap.String("cadence", string(plan.SyncCadence)),
		zap.Duration("interval", interval),
	)
}

// UnscheduleTenant cancels and removes the tenant's timer. Calling it for
// an unscheduled tenant is a no-op. An in-flight run is not aborted.
func (s *Scheduler) UnscheduleTenant(tenantID int64) {
	s.mu.Lock()
	timer, exists := s.timers[tenantID]
	if exists {
		close(timer.stop)
		delete(s.timers, tenantID)
	}
	count := len(s.timers)
	s.mu.Unlock()

	if exists {
		obsmetrics.Sync().SetScheduledTenants(count)
		s.log.Info("tenant unscheduled", zap.Int64("tenant_id", tenantID))
	}
}

// InitializeAll schedules every active tenant at process start. One
// tenant's failure never aborts initialization of the others.
func (s *Scheduler) InitializeAll(ctx context.Context) error {
	entries, err := s.registry.GetActiveTenantsWithPlans(ctx)
	if err != nil {
		return err
	}

	scheduled := 0
	for i := range entries {
		entry := entries[i]
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("panic while scheduling tenant",
						zap.Int64("tenant_id", entry.Tenant.ID),
						zap.Any("panic", r),
					)
				}
			}()
			s.ScheduleTenant(&entry.Tenant, entry.Plan)
			if entry.Plan != nil {
				if _, ok := entry.Plan.SyncCadence.Interval(); ok {
					scheduled++
				}
			}
		}()
	}

	s.log.Info("scheduler initialized",
		zap.Int("active_tenants", len(entries)),
		zap.Int("scheduled", scheduled),
	)
	return nil
}

// RescheduleOnPlanChange re-resolves the tenant's plan and replaces its
// timer; invoked by the billing collaborator after a plan change.
func (s *Scheduler) RescheduleOnPlanChange(ctx context.Context, tenantID int64) error {
	t, err := s.registry.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if t == nil || !t.Active {
		s.UnscheduleTenant(tenantID)
		return nil
	}

	// The plan just changed upstream; a cached lookup would reinstall the
	// old cadence.
	s.registry.InvalidatePlan(tenantID)
	plan, err := s.registry.GetPlan(ctx, tenantID)
	if err != nil {
		return err
	}
	s.ScheduleTenant(t, plan)
	return nil
}

// Stop cancels every timer. In-flight runs finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, timer := range s.timers {
		close(timer.stop)
		delete(s.timers, id)
	}
	s.mu.Unlock()
	obsmetrics.Sync().SetScheduledTenants(0)
	s.log.Info("scheduler stopped")
}

// ScheduledCount reports how many tenants currently hold a live timer.
func (s *Scheduler) ScheduledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) runTimer(tenantID int64, timer *tenantTimer) {
	ticks, stop := s.newTicker(timer.interval)
	defer stop()

	for {
		select {
		case <-timer.stop:
			return
		case <-ticks:
			s.fire(tenantID)
		}
	}
}

// fire invokes one sync run, isolating panics and per-tenant errors so a
// single tenant can never kill the timer loop or starve other tenants.
func (s *Scheduler) fire(tenantID int64) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic during scheduled sync",
				zap.Int64("tenant_id", tenantID),
				zap.Any("panic", r),
			)
		}
	}()

	obsmetrics.Sync().IncTimerFire()

	_, err := s.orchestrator.RunSync(context.Background(), tenantID)
	if err != nil {
		if errors.Is(err, syncrun.ErrSyncInProgress) {
			s.log.Debug("scheduled sync skipped, run in progress", zap.Int64("tenant_id", tenantID))
			return
		}
		s.log.Warn("scheduled sync failed",
			zap.Int64("tenant_id", tenantID),
			zap.Error(err),
		)
	}
}
