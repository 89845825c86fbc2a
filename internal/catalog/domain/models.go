// Package domain contains the catalog models: the tenant-scoped product
// rows and the raw item shape returned by the external source.
package domain

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

// Variant is one purchasable variation of a product.
type Variant struct {
	ExternalID string  `json:"external_id"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	Stock      int     `json:"stock"`
}

// Product is one catalog item scoped to a tenant. The pair
// (tenant_id, external_id) is unique; re-syncs replace mutable fields in
// place and never accumulate duplicates.
type Product struct {
	ID             int64                        `gorm:"primaryKey"`
	TenantID       int64                        `gorm:"not null;uniqueIndex:ux_products_tenant_external,priority:1"`
	ExternalID     string                       `gorm:"type:text;not null;uniqueIndex:ux_products_tenant_external,priority:2"`
	Title          string                       `gorm:"type:text;not null"`
	Description    string                       `gorm:"type:text"`
	Price          float64                      `gorm:"not null;default:0"`
	CompareAtPrice *float64                     `gorm:""`
	Vendor         string                       `gorm:"type:text"`
	ProductType    string                       `gorm:"type:text"`
	Tags           datatypes.JSONSlice[string]  `gorm:"type:jsonb"`
	Images         datatypes.JSONSlice[string]  `gorm:"type:jsonb"`
	Variants       datatypes.JSONSlice[Variant] `gorm:"type:jsonb"`
	InStock        bool                         `gorm:"not null;default:false"`
	LastSyncedAt   time.Time                    `gorm:"not null"`
	CreatedAt      time.Time                    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time                    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }

// RawVariant mirrors the source wire format for one variant.
type RawVariant struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Price             string `json:"price"`
	InventoryQuantity int    `json:"inventory_quantity"`
	InventoryPolicy   string `json:"inventory_policy"`
}

// RawImage mirrors the source wire format for one image reference.
type RawImage struct {
	Src string `json:"src"`
}

// RawItem is one catalog item exactly as the external source returns it.
type RawItem struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	BodyHTML       string       `json:"body_html"`
	Vendor         string       `json:"vendor"`
	ProductType    string       `json:"product_type"`
	Tags           string       `json:"tags"`
	CompareAtPrice string       `json:"compare_at_price"`
	Images         []RawImage   `json:"images"`
	Variants       []RawVariant `json:"variants"`
}

var (
	ErrMissingExternalID = errors.New("item missing external id")
	ErrFetchTransport    = errors.New("catalog source transport error")
)
