package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	catalogdomain "github.com/merchantiq/catalogsync/internal/catalog/domain"
	tenantdomain "github.com/merchantiq/catalogsync/internal/tenant/domain"
	"github.com/merchantiq/catalogsync/pkg/tenantctx"
)

type installTenantRequest struct {
	ShopDomain  string `json:"shop_domain"`
	AccessToken string `json:"access_token"`
}

func (s *Server) InstallTenant(c *gin.Context) {
	var req installTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	shopDomain := strings.TrimSpace(req.ShopDomain)
	if shopDomain == "" {
		AbortWithError(c, newValidationError("shop_domain", "required", "shop_domain is required"))
		return
	}
	accessToken := strings.TrimSpace(req.AccessToken)
	if accessToken == "" {
		AbortWithError(c, newValidationError("access_token", "required", "access_token is required"))
		return
	}

	tenant, err := s.tenants.Install(c.Request.Context(), shopDomain, accessToken)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.scheduler != nil {
		if err := s.scheduler.RescheduleOnPlanChange(c.Request.Context(), tenant.ID); err != nil {
			s.log.Warn("scheduling after install failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tenant_id":   tenant.ID,
		"shop_domain": tenant.ShopDomain,
		"active":      tenant.Active,
	}})
}

func (s *Server) GetTenant(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tenant_id":    tenant.ID,
		"shop_domain":  tenant.ShopDomain,
		"active":       tenant.Active,
		"last_sync_at": tenant.LastSyncAt,
		"next_sync_at": tenant.NextSyncAt,
	}})
}

func (s *Server) DeactivateTenant(c *gin.Context) {
	tenantID, err := parseTenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := tenantctx.WithTenantID(c.Request.Context(), tenantID)
	if err := s.tenants.Deactivate(ctx, tenantID); err != nil {
		AbortWithError(c, err)
		return
	}
	if s.scheduler != nil {
		s.scheduler.UnscheduleTenant(tenantID)
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"tenant_id": tenantID, "active": false}})
}

func (s *Server) ListProducts(c *gin.Context) {
	tenantID, err := parseTenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		Search   string `form:"search"`
		Page     int    `form:"page"`
		PageSize int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := tenantctx.WithTenantID(c.Request.Context(), tenantID)
	products, total, err := s.products.FindByTenant(ctx, tenantID, catalogdomain.Query{
		Search:   strings.TrimSpace(query.Search),
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  products,
		"total": total,
	})
}
