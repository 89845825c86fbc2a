package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func parseTenantID(c *gin.Context) (int64, error) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, newValidationError("id", "invalid_tenant_id", "invalid tenant id")
	}
	return id, nil
}
