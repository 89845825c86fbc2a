package syncrun

import (
	"context"
	"fmt"
	"time"

	catalogdomain "github.com/merchantiq/catalogsync/internal/catalog/domain"
	"github.com/merchantiq/catalogsync/internal/catalog/transform"
	"github.com/merchantiq/catalogsync/internal/clock"
	"github.com/merchantiq/catalogsync/internal/fanout"
	obsmetrics "github.com/merchantiq/catalogsync/internal/observability/metrics"
	subscriptiondomain "github.com/merchantiq/catalogsync/internal/subscription/domain"
	tenantdomain "github.com/merchantiq/catalogsync/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// OverlapGuard coordinates overlapping runs for the same tenant. A nil
// guard disables overlap protection; runs then proceed unconditionally.
type OverlapGuard interface {
	TryAcquire(ctx context.Context, tenantID int64) (token string, ok bool, err error)
	Release(ctx context.Context, tenantID int64, token string) error
}

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	Registry    tenantdomain.Registry
	Gate        subscriptiondomain.Gate
	Source      catalogdomain.Source
	Transformer *transform.Transformer
	CatalogRepo catalogdomain.Repository
	Fanout      *fanout.Engine
	Guard       OverlapGuard `optional:"true"`
}

// Orchestrator runs the fetch → transform → upsert → fan-out pipeline for
// one tenant at a time.
type Orchestrator struct {
	log         *zap.Logger
	clock       clock.Clock
	registry    tenantdomain.Registry
	gate        subscriptiondomain.Gate
	source      catalogdomain.Source
	transformer *transform.Transformer
	catalogRepo catalogdomain.Repository
	fanout      *fanout.Engine
	guard       OverlapGuard
	status      *StatusStore
}

func New(p Params, status *StatusStore) *Orchestrator {
	return &Orchestrator{
		log:         p.Log.Named("syncrun"),
		clock:       p.Clock,
		registry:    p.Registry,
		gate:        p.Gate,
		source:      p.Source,
		transformer: p.Transformer,
		catalogRepo: p.CatalogRepo,
		fanout:      p.Fanout,
		guard:       p.Guard,
		status:      status,
	}
}

// RunSync executes one synchronization for the tenant and returns the
// aggregated run. The returned error is terminal for this run; the next
// scheduled fire retries naturally.
func (o *Orchestrator) RunSync(ctx context.Context, tenantID int64) (*Run, error) {
	metrics := obsmetrics.Sync()
	start := o.clock.Now()
	run := &Run{TenantID: tenantID, StartedAt: start}
	log := o.log.With(zap.Int64("tenant_id", tenantID))

	var token string
	if o.guard != nil {
		claimed, acquired, err := o.guard.TryAcquire(ctx, tenantID)
		if err != nil {
			// guard trouble must not block syncing; overlap is merely wasteful
			log.Warn("sync guard unavailable, continuing without it", zap.Error(err))
		} else if !acquired {
			run.Skipped = true
			run.SkipReason = "sync already in progress"
			run.FinishedAt = o.clock.Now()
			metrics.IncRun(obsmetrics.OutcomeSkipped)
			log.Info("sync skipped, previous run still holds the lock")
			return run, ErrSyncInProgress
		} else {
			token = claimed
		}
	}
	defer func() {
		if token != "" {
			_ = o.guard.Release(context.WithoutCancel(ctx), tenantID, token)
		}
	}()

	t, err := o.registry.GetTenant(ctx, tenantID)
	if err != nil {
		return o.finish(run, err, metrics, log)
	}
	if t == nil {
		return o.finish(run, tenantdomain.ErrTenantNotFound, metrics, log)
	}

	plan, err := o.registry.GetPlan(ctx, tenantID)
	if err != nil {
		return o.finish(run, err, metrics, log)
	}
	if plan == nil {
		return o.finish(run, tenantdomain.ErrNoActivePlan, metrics, log)
	}

	decision, err := o.gate.CheckAllowed(ctx, tenantID)
	if err != nil {
		return o.finish(run, err, metrics, log)
	}
	if !decision.Allowed {
		return o.finish(run, fmt.Errorf("%w: %s", ErrInactiveSubscription, decision.Reason), metrics, log)
	}

	cred := catalogdomain.Credential{ShopDomain: t.ShopDomain, AccessToken: t.AccessToken}
	reconciled, fetchErr := o.fetchAndReconcile(ctx, run, cred, plan.ProductLimit, log)
	metrics.AddFetched(run.FetchedCount)
	metrics.AddUpserted(run.UpsertedCount)

	if fetchErr != nil {
		// pages already upserted are kept; no fan-out for an aborted run
		run.Err = fetchErr
		run.FinishedAt = o.clock.Now()
		metrics.IncRun(obsmetrics.OutcomeFailed)
		metrics.ObserveRun(obsmetrics.OutcomeFailed, run.FinishedAt.Sub(start))
		o.status.Record(run)
		log.Warn("sync aborted mid-pagination",
			zap.Int("fetched", run.FetchedCount),
			zap.Int("upserted", run.UpsertedCount),
			zap.Error(fetchErr),
		)
		return run, fetchErr
	}

	run.ProviderResults = o.fanout.Fanout(ctx, tenantID, t.ShopDomain, reconciled, plan.Providers())

	now := o.clock.Now()
	var nextSyncAt *time.Time
	if interval, ok := plan.SyncCadence.Interval(); ok {
		next := now.Add(interval)
		nextSyncAt = &next
	}
	if err := o.registry.UpdateSyncBookkeeping(ctx, tenantID, now, nextSyncAt); err != nil {
		log.Warn("sync bookkeeping update failed", zap.Error(err))
	}

	run.FinishedAt = now
	outcome := obsmetrics.OutcomeSuccess
	if len(run.ItemErrors) > 0 {
		outcome = obsmetrics.OutcomePartial
	}
	metrics.IncRun(outcome)
	metrics.ObserveRun(outcome, run.FinishedAt.Sub(start))
	o.status.Record(run)

	log.Info("sync completed",
		zap.Int("fetched", run.FetchedCount),
		zap.Int("upserted", run.UpsertedCount),
		zap.Int("item_errors", len(run.ItemErrors)),
		zap.Int("providers", len(run.ProviderResults)),
		zap.Duration("took", run.FinishedAt.Sub(start)),
	)
	return run, nil
}

func (o *Orchestrator) finish(run *Run, err error, metrics *obsmetrics.SyncMetrics, log *zap.Logger) (*Run, error) {
	run.Err = err
	run.FinishedAt = o.clock.Now()
	metrics.IncRun(obsmetrics.OutcomeFailed)
	o.status.Record(run)
	log.Warn("sync run terminated", zap.Error(err))
	return run, err
}

// ForceSyncNow runs a sync outside the timer, reusing the same path.
func (o *Orchestrator) ForceSyncNow(ctx context.Context, tenantID int64) (*Run, error) {
	return o.RunSync(ctx, tenantID)
}

// fetchAndReconcile walks the cursor chain page by page, transforming and
// upserting each page before requesting the next. The product cap from the
// plan silently truncates; it never errors.
func (o *Orchestrator) fetchAndReconcile(ctx context.Context, run *Run, cred catalogdomain.Credential, productLimit int, log *zap.Logger) ([]catalogdomain.Product, error) {
	var reconciled []catalogdomain.Product
	cursor := ""

	for {
		if ctx.Err() != nil {
			return reconciled, fmt.Errorf("%w: %v", catalogdomain.ErrFetchTransport, ctx.Err())
		}

		page, err := o.source.FetchPage(ctx, cred, cursor)
		if err != nil {
			return reconciled, err
		}

		items := page.Items
		capped := false
		if productLimit > 0 && run.FetchedCount+len(items) >= productLimit {
			items = items[:productLimit-run.FetchedCount]
			capped = true
		}
		run.FetchedCount += len(items)

		now := o.clock.Now()
		batch := make([]catalogdomain.Product, 0, len(items))
		for _, raw := range items {
			product, err := o.transformer.Transform(run.TenantID, raw, now)
			if err != nil {
				run.ItemErrors = append(run.ItemErrors, catalogdomain.ItemError{ExternalID: raw.ID, Err: err})
				log.Warn("item transform failed, skipping",
					zap.String("external_id", raw.ID),
					zap.Error(err),
				)
				continue
			}
			batch = append(batch, product)
		}

		if len(batch) > 0 {
			result, err := o.catalogRepo.UpsertBatch(ctx, run.TenantID, batch)
			if err != nil {
				return reconciled, err
			}
			run.UpsertedCount += result.Upserted
			run.ItemErrors = append(run.ItemErrors, result.Errors...)
			reconciled = append(reconciled, batch...)
		}

		if capped || page.NextCursor == "" {
			return reconciled, nil
		}
		cursor = page.NextCursor
	}
}
