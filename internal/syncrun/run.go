// Package syncrun coordinates one tenant's catalog synchronization:
// plan gating, paged fetch, transform, idempotent upsert, provider fan-out
// and sync bookkeeping.
package syncrun

import (
	"errors"
	"time"

	catalogdomain "github.com/merchantiq/catalogsync/internal/catalog/domain"
	"github.com/merchantiq/catalogsync/internal/fanout"
)

// Terminal run errors. None of these trigger an automatic retry; the next
// scheduled fire tries again naturally.
var (
	ErrInactiveSubscription = errors.New("inactive_subscription")
	ErrSyncInProgress       = errors.New("sync_in_progress")
)

// Run is the aggregated outcome of one orchestrator execution for one
// tenant. It is transient bookkeeping, not a persisted row.
type Run struct {
	TenantID        int64                     `json:"tenant_id"`
	StartedAt       time.Time                 `json:"started_at"`
	FinishedAt      time.Time                 `json:"finished_at"`
	FetchedCount    int                       `json:"fetched_count"`
	UpsertedCount   int                       `json:"upserted_count"`
	ItemErrors      []catalogdomain.ItemError `json:"-"`
	ProviderResults []fanout.PushResult       `json:"provider_results"`
	Err             error                     `json:"-"`
	Skipped         bool                      `json:"skipped"`
	SkipReason      string                    `json:"skip_reason,omitempty"`
}

// Succeeded reports whether catalog reconciliation completed. Provider
// failures are provider-level and do not fail the run.
func (r *Run) Succeeded() bool {
	return r != nil && !r.Skipped && r.Err == nil
}
