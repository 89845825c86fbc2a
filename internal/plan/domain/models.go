// Package domain contains the read-only plan catalog consumed by the sync
// engine. Plans are mutated only by the external billing workflow.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Plan is an immutable subscription tier template.
type Plan struct {
	ID               int64                        `gorm:"primaryKey"`
	Name             string                       `gorm:"type:text;not null;uniqueIndex"`
	ProductLimit     int                          `gorm:"not null"`
	SyncCadence      Cadence                      `gorm:"type:text;not null"`
	EnabledProviders datatypes.JSONSlice[string]  `gorm:"type:jsonb"`
	FeatureFlags     datatypes.JSONMap            `gorm:"type:jsonb"`
	CreatedAt        time.Time                    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time                    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Plan) TableName() string { return "plans" }

// Providers returns the provider names enabled on this plan.
func (p *Plan) Providers() []string {
	out := make([]string, 0, len(p.EnabledProviders))
	for _, name := range p.EnabledProviders {
		out = append(out, name)
	}
	return out
}
