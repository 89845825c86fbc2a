package fanout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	catalogdomain "github.com/merchantiq/catalogsync/internal/catalog/domain"
	"github.com/merchantiq/catalogsync/internal/config"
	obsmetrics "github.com/merchantiq/catalogsync/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config controls retry budgets, payload bounds and inter-provider pacing.
type Config struct {
	ProviderSpacing    time.Duration
	RetryDelay         time.Duration
	DefaultTimeout     time.Duration
	DefaultMaxAttempts int
	DefaultMaxItems    int
	MaxFieldLen        int
}

func DefaultConfig() Config {
	return Config{
		ProviderSpacing:    500 * time.Millisecond,
		RetryDelay:         2 * time.Second,
		DefaultTimeout:     30 * time.Second,
		DefaultMaxAttempts: 3,
		DefaultMaxItems:    500,
		MaxFieldLen:        2000,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.ProviderSpacing <= 0 {
		c.ProviderSpacing = defaults.ProviderSpacing
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaults.RetryDelay
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = defaults.DefaultTimeout
	}
	if c.DefaultMaxAttempts <= 0 {
		c.DefaultMaxAttempts = defaults.DefaultMaxAttempts
	}
	if c.DefaultMaxItems <= 0 {
		c.DefaultMaxItems = defaults.DefaultMaxItems
	}
	if c.MaxFieldLen <= 0 {
		c.MaxFieldLen = defaults.MaxFieldLen
	}
	return c
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Providers *config.ProviderConfigHolder
	Factory   PusherFactory
	Config    Config `optional:"true"`
}

// Engine dispatches one push per enabled provider, each independently
// retried and time bounded, and aggregates one result per provider.
type Engine struct {
	log       *zap.Logger
	providers *config.ProviderConfigHolder
	factory   PusherFactory
	cfg       Config
}

func New(p Params) *Engine {
	return &Engine{
		log:       p.Log.Named("fanout"),
		providers: p.Providers,
		factory:   p.Factory,
		cfg:       p.Config.withDefaults(),
	}
}

// Fanout pushes the reconciled catalog to every requested provider. It
// always returns exactly one result per requested name and never fails the
// call for partial (or even total) provider failure.
func (e *Engine) Fanout(ctx context.Context, tenantID int64, shop string, products []catalogdomain.Product, providerNames []string) []PushResult {
	results := make([]PushResult, len(providerNames))
	if len(providerNames) == 0 {
		return results
	}

	// Spacing between the start of each provider's call sequence keeps a
	// shared egress below any single outbound-rate ceiling.
	limiter := rate.NewLimiter(rate.Every(e.cfg.ProviderSpacing), 1)
	live := e.providers.Get()

	var wg sync.WaitGroup
	for i, name := range providerNames {
		if err := limiter.Wait(ctx); err != nil {
			results[i] = PushResult{
				Provider:       name,
				Success:        false,
				Error:          err.Error(),
				Classification: ClassTransient,
			}
			continue
		}

		wg.Add(1)
		go func(idx int, providerName string) {
			defer wg.Done()
			results[idx] = e.pushProvider(ctx, live, tenantID, shop, products, providerName)
		}(i, name)
	}
	wg.Wait()

	return results
}

func (e *Engine) pushProvider(ctx context.Context, live config.ProvidersConfig, tenantID int64, shop string, products []catalogdomain.Product, name string) PushResult {
	metrics := obsmetrics.Sync()

	providerCfg := live.Lookup(name)
	if providerCfg == nil || strings.TrimSpace(providerCfg.APIKey) == "" || strings.TrimSpace(providerCfg.Endpoint) == "" {
		metrics.IncPushResult(name, obsmetrics.PushResultNotConfigured)
		e.log.Info("provider not configured, skipping",
			zap.Int64("tenant_id", tenantID),
			zap.String("provider", name),
		)
		return PushResult{
			Provider:       name,
			Success:        false,
			Error:          "not configured",
			Classification: ClassNotConfigured,
		}
	}

	cfg := e.resolveProviderConfig(*providerCfg)
	payload := e.buildPayload(tenantID, shop, products, cfg.MaxItems)
	pusher := e.factory(cfg)

	attempts := 0
	operation := func() (struct{}, error) {
		attempts++
		metrics.IncPushAttempt(name)

		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		err := pusher.Push(callCtx, payload)
		if err == nil {
			return struct{}{}, nil
		}
		if IsTerminal(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(e.cfg.RetryDelay)),
		backoff.WithMaxTries(uint(cfg.MaxAttempts)),
	)
	if err == nil {
		metrics.IncPushResult(name, obsmetrics.PushResultSucceeded)
		e.log.Info("provider push succeeded",
			zap.Int64("tenant_id", tenantID),
			zap.String("provider", name),
			zap.Int("attempts", attempts),
			zap.Int("items", len(payload.Items)),
		)
		return PushResult{
			Provider:       name,
			Success:        true,
			AttemptsMade:   attempts,
			ItemsSent:      len(payload.Items),
			Classification: ClassSucceeded,
		}
	}

	classification := ClassTransient
	metricResult := obsmetrics.PushResultTransient
	if IsTerminal(err) {
		classification = ClassTerminal
		metricResult = obsmetrics.PushResultTerminal
	}
	metrics.IncPushResult(name, metricResult)
	e.log.Warn("provider push failed",
		zap.Int64("tenant_id", tenantID),
		zap.String("provider", name),
		zap.Int("attempts", attempts),
		zap.String("classification", string(classification)),
		zap.Error(err),
	)
	return PushResult{
		Provider:       name,
		Success:        false,
		AttemptsMade:   attempts,
		Error:          err.Error(),
		Classification: classification,
	}
}

func (e *Engine) resolveProviderConfig(cfg config.ProviderConfig) config.ProviderConfig {
	if cfg.Timeout <= 0 {
		cfg.Timeout = e.cfg.DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = e.cfg.DefaultMaxAttempts
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = e.cfg.DefaultMaxItems
	}
	return cfg
}

func (e *Engine) buildPayload(tenantID int64, shop string, products []catalogdomain.Product, maxItems int) PushRequest {
	if len(products) > maxItems {
		products = products[:maxItems]
	}

	items := make([]PayloadItem, 0, len(products))
	for _, p := range products {
		items = append(items, PayloadItem{
			ExternalID:  p.ExternalID,
			Title:       truncate(p.Title, e.cfg.MaxFieldLen),
			Description: truncate(p.Description, e.cfg.MaxFieldLen),
			Price:       p.Price,
			Vendor:      truncate(p.Vendor, e.cfg.MaxFieldLen),
			ProductType: truncate(p.ProductType, e.cfg.MaxFieldLen),
			Tags:        p.Tags,
			InStock:     p.InStock,
		})
	}
	return PushRequest{TenantID: tenantID, Shop: shop, Items: items}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
