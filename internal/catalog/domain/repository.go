package domain

import (
	"context"
)

// ItemError records one item that failed transform or upsert; the batch
// continues past it.
type ItemError struct {
	ExternalID string
	Err        error
}

// BatchResult reports the outcome of one upsert batch.
type BatchResult struct {
	Upserted int
	Errors   []ItemError
}

// Query is the read-side filter for a tenant's products.
type Query struct {
	Search   string
	Page     int
	PageSize int
}

type Repository interface {
	// UpsertBatch inserts or replaces products keyed by
	// (tenant_id, external_id). Single-item failures are recorded in the
	// result, not returned as an error.
	UpsertBatch(ctx context.Context, tenantID int64, items []Product) (BatchResult, error)
	FindByTenant(ctx context.Context, tenantID int64, q Query) ([]Product, int64, error)
	CountByTenant(ctx context.Context, tenantID int64) (int64, error)
}
