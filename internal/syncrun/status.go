package syncrun

import (
	"sync"
	"time"

	"github.com/merchantiq/catalogsync/internal/fanout"
)

// Status is the operator-facing view of a tenant's most recent run.
type Status struct {
	TenantID        int64               `json:"tenant_id"`
	LastSyncAt      time.Time           `json:"last_sync_at"`
	FetchedCount    int                 `json:"fetched_count"`
	UpsertedCount   int                 `json:"upserted_count"`
	ItemErrorCount  int                 `json:"item_error_count"`
	Error           string              `json:"error,omitempty"`
	ProviderResults []fanout.PushResult `json:"provider_results"`
}

// StatusStore keeps the last run per tenant in memory. It is a process-local
// operator surface, not durable history.
type StatusStore struct {
	mu   sync.RWMutex
	last map[int64]Status
}

func NewStatusStore() *StatusStore {
	return &StatusStore{last: make(map[int64]Status)}
}

func (s *StatusStore) Record(run *Run) {
	if s == nil || run == nil {
		return
	}
	status := Status{
		TenantID:        run.TenantID,
		LastSyncAt:      run.FinishedAt,
		FetchedCount:    run.FetchedCount,
		UpsertedCount:   run.UpsertedCount,
		ItemErrorCount:  len(run.ItemErrors),
		ProviderResults: run.ProviderResults,
	}
	if run.Err != nil {
		status.Error = run.Err.Error()
	}
	s.mu.Lock()
	s.last[run.TenantID] = status
	s.mu.Unlock()
}

func (s *StatusStore) Get(tenantID int64) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.last[tenantID]
	return status, ok
}
