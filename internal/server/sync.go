package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	tenantdomain "github.com/merchantiq/catalogsync/internal/tenant/domain"
	"github.com/merchantiq/catalogsync/pkg/tenantctx"
)

// TriggerSync runs a full sync inline and reports the run outcome. Provider
// failures surface in the body; only reconciliation errors fail the request.
func (s *Server) TriggerSync(c *gin.Context) {
	tenantID, err := parseTenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := tenantctx.WithTenantID(c.Request.Context(), tenantID)
	run, err := s.orchestrator.ForceSyncNow(ctx, tenantID)
	if err != nil {
		s.log.Warn("manual sync failed",
			zap.Int64("tenant_id", tenantID),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": run})
}

func (s *Server) GetSyncStatus(c *gin.Context) {
	tenantID, err := parseTenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := tenantctx.WithTenantID(c.Request.Context(), tenantID)
	tenant, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if tenant == nil {
		AbortWithError(c, tenantdomain.ErrTenantNotFound)
		return
	}

	productCount, err := s.products.CountByTenant(ctx, tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{
		"tenant_id":     tenant.ID,
		"active":        tenant.Active,
		"last_sync_at":  tenant.LastSyncAt,
		"next_sync_at":  tenant.NextSyncAt,
		"product_count": productCount,
	}
	if status, ok := s.status.Get(tenantID); ok {
		resp["last_run"] = status
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// PlanChanged re-derives the tenant's timer after a plan or subscription
// change. Billing owns the plan tables; this is the notification hook.
func (s *Server) PlanChanged(c *gin.Context) {
	tenantID, err := parseTenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"tenant_id": tenantID, "rescheduled": false}})
		return
	}

	ctx := tenantctx.WithTenantID(c.Request.Context(), tenantID)
	if err := s.scheduler.RescheduleOnPlanChange(ctx, tenantID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tenant_id":   tenantID,
		"rescheduled": true,
	}})
}
