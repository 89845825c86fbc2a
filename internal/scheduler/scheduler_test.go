package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	catalogdomain "github.com/merchantiq/catalogsync/internal/catalog/domain"
	"github.com/merchantiq/catalogsync/internal/catalog/transform"
	"github.com/merchantiq/catalogsync/internal/clock"
	"github.com/merchantiq/catalogsync/internal/config"
	"github.com/merchantiq/catalogsync/internal/fanout"
	plandomain "github.com/merchantiq/catalogsync/internal/plan/domain"
	subscriptiondomain "github.com/merchantiq/catalogsync/internal/subscription/domain"
	"github.com/merchantiq/catalogsync/internal/syncrun"
	tenantdomain "github.com/merchantiq/catalogsync/internal/tenant/domain"
)

// registryStub serves plans from the plans map. When freshPlans holds an
// entry for a tenant, GetPlan keeps answering the stale plan until
// InvalidatePlan promotes the fresh one, mimicking the registry's cache.
type registryStub struct {
	mu         sync.Mutex
	tenants    map[int64]*tenantdomain.Tenant
	plans      map[int64]*plandomain.Plan
	freshPlans map[int64]*plandomain.Plan
	entries    []tenantdomain.TenantWithPlan
	bookkept   chan int64
}

func (r *registryStub) Install(ctx context.Context, shopDomain, accessToken string) (*tenantdomain.Tenant, error) {
	return nil, nil
}

func (r *registryStub) Deactivate(ctx context.Context, tenantID int64) error { return nil }

func (r *registryStub) GetTenant(ctx context.Context, tenantID int64) (*tenantdomain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tenants[tenantID], nil
}

func (r *registryStub) GetPlan(ctx context.Context, tenantID int64) (*plandomain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.plans[tenantID], nil
}

func (r *registryStub) InvalidatePlan(tenantID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fresh, ok := r.freshPlans[tenantID]; ok {
		if r.plans == nil {
			r.plans = make(map[int64]*plandomain.Plan)
		}
		r.plans[tenantID] = fresh
	}
}

func (r *registryStub) GetActiveTenantsWithPlans(ctx context.Context) ([]tenantdomain.TenantWithPlan, error) {
	return r.entries, nil
}

func (r *registryStub) UpdateSyncBookkeeping(ctx context.Context, tenantID int64, lastSyncAt time.Time, nextSyncAt *time.Time) error {
	if r.bookkept != nil {
		r.bookkept <- tenantID
	}
	return nil
}

type gateStub struct{}

func (gateStub) CheckAllowed(ctx context.Context, tenantID int64) (subscriptiondomain.Decision, error) {
	return subscriptiondomain.Decision{Allowed: true}, nil
}

type sourceStub struct{}

func (sourceStub) FetchPage(ctx context.Context, cred catalogdomain.Credential, cursor string) (catalogdomain.Page, error) {
	return catalogdomain.Page{}, nil
}

type repoStub struct{}

func (repoStub) UpsertBatch(ctx context.Context, tenantID int64, items []catalogdomain.Product) (catalogdomain.BatchResult, error) {
	return catalogdomain.BatchResult{}, nil
}

func (repoStub) FindByTenant(ctx context.Context, tenantID int64, q catalogdomain.Query) ([]catalogdomain.Product, int64, error) {
	return nil, 0, nil
}

func (repoStub) CountByTenant(ctx context.Context, tenantID int64) (int64, error) { return 0, nil }

func newScheduler(t *testing.T, registry *registryStub) *Scheduler {
	return newSchedulerWith(t, registry, sourceStub{}, nil)
}

func newSchedulerWith(t *testing.T, registry *registryStub, source catalogdomain.Source, guard syncrun.OverlapGuard) *Scheduler {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	engine := fanout.New(fanout.Params{
		Log:       zap.NewNop(),
		Providers: config.NewStaticProviderConfigHolder(config.ProvidersConfig{}),
		Factory:   fanout.NewHTTPPusherFactory(),
	})
	orchestrator := syncrun.New(syncrun.Params{
		Log:         zap.NewNop(),
		Clock:       clock.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		Registry:    registry,
		Gate:        gateStub{},
		Source:      source,
		Transformer: transform.New(transform.Params{GenID: node}),
		CatalogRepo: repoStub{},
		Fanout:      engine,
		Guard:       guard,
	}, syncrun.NewStatusStore())

	s := New(Params{
		Log:          zap.NewNop(),
		Registry:     registry,
		Orchestrator: orchestrator,
	})
	t.Cleanup(s.Stop)
	return s
}

// manualTicks swaps the scheduler's ticker for a channel the test feeds.
// Install it before scheduling; every timer shares the one channel, so
// use it with a single scheduled tenant.
func manualTicks(s *Scheduler) chan time.Time {
	ticks := make(chan time.Time)
	s.newTicker = func(d time.Duration) (<-chan time.Time, func()) {
		return ticks, func() {}
	}
	return ticks
}

func timerInterval(s *Scheduler, tenantID int64) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[tenantID]; ok {
		return timer.interval
	}
	return 0
}

func tenant(id int64) *tenantdomain.Tenant {
	return &tenantdomain.Tenant{ID: id, ShopDomain: "shop.example.com", Active: true}
}

func planWithCadence(c plandomain.Cadence) *plandomain.Plan {
	return &plandomain.Plan{ID: 1, Name: "growth", ProductLimit: 100, SyncCadence: c}
}

func TestScheduleTenantInstallsTimer(t *testing.T) {
	s := newScheduler(t, &registryStub{})

	s.ScheduleTenant(tenant(1), planWithCadence(plandomain.CadenceEvery24h))
	assert.Equal(t, 1, s.ScheduledCount())

	s.ScheduleTenant(tenant(2), planWithCadence(plandomain.CadenceEvery2h))
	assert.Equal(t, 2, s.ScheduledCount())
}

func TestScheduleTenantReplacesExistingTimer(t *testing.T) {
	s := newScheduler(t, &registryStub{})

	s.ScheduleTenant(tenant(1), planWithCadence(plandomain.CadenceEvery24h))
	s.ScheduleTenant(tenant(1), planWithCadence(plandomain.CadenceEvery2h))

	// Replacement, not accumulation.
	assert.Equal(t, 1, s.ScheduledCount())
}

func TestScheduleTenantUnrecognizedCadence(t *testing.T) {
	s := newScheduler(t, &registryStub{})

	s.ScheduleTenant(tenant(1), planWithCadence(plandomain.Cadence("EVERY_5H")))
	assert.Equal(t, 0, s.ScheduledCount())

	// A plan downgrade to an unrecognized cadence cancels the live timer.
	s.ScheduleTenant(tenant(1), planWithCadence(plandomain.CadenceEvery24h))
	assert.Equal(t, 1, s.ScheduledCount())
	s.ScheduleTenant(tenant(1), planWithCadence(plandomain.Cadence("NEVER")))
	assert.Equal(t, 0, s.ScheduledCount())
}

func TestScheduleTenantNilPlan(t *testing.T) {
	s := newScheduler(t, &registryStub{})

	s.ScheduleTenant(tenant(1), planWithCadence(plandomain.CadenceEvery24h))
	s.ScheduleTenant(tenant(1), nil)
	assert.Equal(t, 0, s.ScheduledCount())
}

func TestUnscheduleTenantIsIdempotent(t *testing.T) {
	s := newScheduler(t, &registryStub{})

	s.UnscheduleTenant(42)
	assert.Equal(t, 0, s.ScheduledCount())

	s.ScheduleTenant(tenant(42), planWithCadence(plandomain.CadenceEvery6h))
	s.UnscheduleTenant(42)
	s.UnscheduleTenant(42)
	assert.Equal(t, 0, s.ScheduledCount())
}

func TestInitializeAllSchedulesActiveTenants(t *testing.T) {
	registry := &registryStub{
		entries: []tenantdomain.TenantWithPlan{
			{Tenant: *tenant(1), Plan: planWithCadence(plandomain.CadenceEvery24h)},
			{Tenant: *tenant(2), Plan: planWithCadence(plandomain.Cadence("BOGUS"))},
			{Tenant: *tenant(3), Plan: nil},
			{Tenant: *tenant(4), Plan: planWithCadence(plandomain.CadenceBiweekly)},
		},
	}
	s := newScheduler(t, registry)

	err := s.InitializeAll(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, s.ScheduledCount())
}

func TestRescheduleOnPlanChange(t *testing.T) {
	registry := &registryStub{
		tenants: map[int64]*tenantdomain.Tenant{1: tenant(1)},
		plans:   map[int64]*plandomain.Plan{1: planWithCadence(plandomain.CadenceEvery12h)},
	}
	s := newScheduler(t, registry)

	err := s.RescheduleOnPlanChange(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, s.ScheduledCount())

	// Tenant gone inactive: timer is torn down.
	registry.tenants[1].Active = false
	err = s.RescheduleOnPlanChange(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 0, s.ScheduledCount())
}

func TestRescheduleOnPlanChangeUnknownTenant(t *testing.T) {
	s := newScheduler(t, &registryStub{tenants: map[int64]*tenantdomain.Tenant{}})

	err := s.RescheduleOnPlanChange(context.Background(), 99)
	assert.NoError(t, err)
	assert.Equal(t, 0, s.ScheduledCount())
}

func TestRescheduleOnPlanChangeUsesFreshPlan(t *testing.T) {
	registry := &registryStub{
		tenants:    map[int64]*tenantdomain.Tenant{1: tenant(1)},
		plans:      map[int64]*plandomain.Plan{1: planWithCadence(plandomain.CadenceEvery6h)},
		freshPlans: map[int64]*plandomain.Plan{1: planWithCadence(plandomain.CadenceEvery2h)},
	}
	s := newScheduler(t, registry)

	s.ScheduleTenant(tenant(1), planWithCadence(plandomain.CadenceEvery6h))
	assert.Equal(t, 6*time.Hour, timerInterval(s, 1))

	// The stub keeps answering the stale plan until the reschedule path
	// invalidates it; the new timer must carry the upgraded cadence.
	err := s.RescheduleOnPlanChange(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 2*time.Hour, timerInterval(s, 1))
}

// panicSource blows up on every fetch, after announcing the call.
type panicSource struct {
	calls chan struct{}
}

func (p panicSource) FetchPage(ctx context.Context, cred catalogdomain.Credential, cursor string) (catalogdomain.Page, error) {
	p.calls <- struct{}{}
	panic("catalog source exploded")
}

// denyGuard refuses every claim, as redis does while a previous run's
// lock is still alive.
type denyGuard struct {
	acquires chan struct{}
}

func (g denyGuard) TryAcquire(ctx context.Context, tenantID int64) (string, bool, error) {
	g.acquires <- struct{}{}
	return "", false, nil
}

func (g denyGuard) Release(ctx context.Context, tenantID int64, token string) error { return nil }

func TestTimerFireRunsSync(t *testing.T) {
	registry := &registryStub{
		tenants:  map[int64]*tenantdomain.Tenant{1: tenant(1)},
		plans:    map[int64]*plandomain.Plan{1: planWithCadence(plandomain.CadenceEvery2h)},
		bookkept: make(chan int64, 1),
	}
	s := newScheduler(t, registry)
	ticks := manualTicks(s)

	s.ScheduleTenant(tenant(1), planWithCadence(plandomain.CadenceEvery2h))
	ticks <- time.Now()

	select {
	case id := <-registry.bookkept:
		assert.Equal(t, int64(1), id)
	case <-time.After(2 * time.Second):
		t.Fatal("timer fire never reached the orchestrator")
	}
}

func TestTimerFireSurvivesPanic(t *testing.T) {
	registry := &registryStub{
		tenants: map[int64]*tenantdomain.Tenant{1: tenant(1)},
		plans:   map[int64]*plandomain.Plan{1: planWithCadence(plandomain.CadenceEvery2h)},
	}
	source := panicSource{calls: make(chan struct{})}
	s := newSchedulerWith(t, registry, source, nil)
	ticks := manualTicks(s)

	s.ScheduleTenant(tenant(1), planWithCadence(plandomain.CadenceEvery2h))

	ticks <- time.Now()
	<-source.calls

	// A second fire being delivered proves the panic did not kill the
	// timer loop.
	ticks <- time.Now()
	select {
	case <-source.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("timer loop died after a panicking run")
	}
}

func TestTimerFireSkipsWhileRunInProgress(t *testing.T) {
	registry := &registryStub{
		tenants:  map[int64]*tenantdomain.Tenant{1: tenant(1)},
		plans:    map[int64]*plandomain.Plan{1: planWithCadence(plandomain.CadenceEvery2h)},
		bookkept: make(chan int64, 2),
	}
	guard := denyGuard{acquires: make(chan struct{})}
	s := newSchedulerWith(t, registry, sourceStub{}, guard)
	ticks := manualTicks(s)

	s.ScheduleTenant(tenant(1), planWithCadence(plandomain.CadenceEvery2h))

	ticks <- time.Now()
	<-guard.acquires
	ticks <- time.Now()
	<-guard.acquires

	// Both fires were refused the lock before doing any work.
	select {
	case <-registry.bookkept:
		t.Fatal("skipped run still updated bookkeeping")
	default:
	}
	assert.Equal(t, 1, s.ScheduledCount())
}

func TestStopCancelsAllTimers(t *testing.T) {
	s := newScheduler(t, &registryStub{})

	s.ScheduleTenant(tenant(1), planWithCadence(plandomain.CadenceEvery24h))
	s.ScheduleTenant(tenant(2), planWithCadence(plandomain.CadenceEvery6h))
	s.Stop()
	assert.Equal(t, 0, s.ScheduledCount())
}
