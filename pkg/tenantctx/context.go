// Package tenantctx carries the tenant scope through context for logging
// and repository calls.
package tenantctx

import "context"

type keyType string

const tenantIDKey keyType = "tenant_id"

func WithTenantID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, tenantIDKey, id)
}

func TenantID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(tenantIDKey).(int64)
	return id, ok
}
