// Package migration creates the engine's tables on startup so a fresh
// database is usable without manual steps, and seeds the built-in plans.
package migration

import (
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	catalogdomain "github.com/merchantiq/catalogsync/internal/catalog/domain"
	plandomain "github.com/merchantiq/catalogsync/internal/plan/domain"
	subscriptiondomain "github.com/merchantiq/catalogsync/internal/subscription/domain"
	tenantdomain "github.com/merchantiq/catalogsync/internal/tenant/domain"
)

func RunMigrations(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("migration database handle is required")
	}
	return conn.AutoMigrate(
		&plandomain.Plan{},
		&tenantdomain.Tenant{},
		&subscriptiondomain.Subscription{},
		&catalogdomain.Product{},
	)
}

// defaultPlans are the built-in tiers. Existing rows with the same name are
// left untouched so operators can tune limits in place.
func defaultPlans() []plandomain.Plan {
	return []plandomain.Plan{
		{
			ID:               1,
			Name:             "free",
			ProductLimit:     50,
			SyncCadence:      plandomain.CadenceBiweekly,
			EnabledProviders: datatypes.NewJSONSlice([]string{}),
		},
		{
			ID:               2,
			Name:             "starter",
			ProductLimit:     500,
			SyncCadence:      plandomain.CadenceEvery24h,
			EnabledProviders: datatypes.NewJSONSlice([]string{"openai"}),
		},
		{
			ID:               3,
			Name:             "growth",
			ProductLimit:     5000,
			SyncCadence:      plandomain.CadenceEvery6h,
			EnabledProviders: datatypes.NewJSONSlice([]string{"openai", "gemini"}),
		},
		{
			ID:               4,
			Name:             "scale",
			ProductLimit:     50000,
			SyncCadence:      plandomain.CadenceEvery2h,
			EnabledProviders: datatypes.NewJSONSlice([]string{"openai", "gemini", "perplexity"}),
		},
	}
}

func SeedPlans(conn *gorm.DB) error {
	for _, plan := range defaultPlans() {
		var count int64
		if err := conn.Model(&plandomain.Plan{}).Where("name = ?", plan.Name).Count(&count).Error; err != nil {
			return fmt.Errorf("seed plans: %w", err)
		}
		if count > 0 {
			continue
		}
		if err := conn.Create(&plan).Error; err != nil {
			return fmt.Errorf("seed plans: %w", err)
		}
	}
	return nil
}
