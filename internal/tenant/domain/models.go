// Package domain contains the tenant registry models. A tenant is one
// onboarded merchant store; it is deactivated on uninstall, never deleted.
package domain

import (
	"errors"
	"time"
)

type Tenant struct {
	ID          int64      `gorm:"primaryKey"`
	ShopDomain  string     `gorm:"type:text;not null;uniqueIndex"`
	AccessToken string     `gorm:"type:text"`
	Active      bool       `gorm:"not null;default:true"`
	LastSyncAt  *time.Time `gorm:""`
	NextSyncAt  *time.Time `gorm:""`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Tenant) TableName() string { return "tenants" }

var (
	ErrTenantNotFound = errors.New("tenant_not_found")
	ErrNoActivePlan   = errors.New("no_active_plan")
	ErrInvalidDomain  = errors.New("invalid_shop_domain")
)
