package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	catalogdomain "github.com/merchantiq/catalogsync/internal/catalog/domain"
	"github.com/merchantiq/catalogsync/internal/config"
)

type stubPusher struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (p *stubPusher) Push(ctx context.Context, req PushRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.calls
	p.calls++
	if idx < len(p.errs) {
		return p.errs[idx]
	}
	return nil
}

func (p *stubPusher) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func testProviders(names ...string) config.ProvidersConfig {
	cfg := config.ProvidersConfig{}
	for _, name := range names {
		cfg.Providers = append(cfg.Providers, config.ProviderConfig{
			Name:     name,
			Endpoint: "https://" + name + ".example.com/v1/catalog",
			APIKey:   "key-" + name,
		})
	}
	return cfg
}

func newTestEngine(t *testing.T, providers config.ProvidersConfig, pushers map[string]*stubPusher) *Engine {
	t.Helper()

	factory := func(cfg config.ProviderConfig) Pusher {
		if p, ok := pushers[cfg.Name]; ok {
			return p
		}
		return &stubPusher{}
	}

	return New(Params{
		Log:       zap.NewNop(),
		Providers: config.NewStaticProviderConfigHolder(providers),
		Factory:   factory,
		Config: Config{
			ProviderSpacing: time.Nanosecond,
			RetryDelay:      time.Millisecond,
		},
	})
}

func sampleProducts(n int) []catalogdomain.Product {
	out := make([]catalogdomain.Product, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, catalogdomain.Product{
			ExternalID: string(rune('a' + i)),
			Title:      "Item",
			Price:      1,
			InStock:    true,
		})
	}
	return out
}

func resultFor(t *testing.T, results []PushResult, provider string) PushResult {
	t.Helper()
	for _, r := range results {
		if r.Provider == provider {
			return r
		}
	}
	t.Fatalf("no result for provider %q", provider)
	return PushResult{}
}

func TestFanoutOneResultPerProvider(t *testing.T) {
	pushers := map[string]*stubPusher{
		"alpha": {},
		"beta":  {errs: []error{ErrAuthRejected, ErrAuthRejected, ErrAuthRejected}},
		"gamma": {},
	}
	engine := newTestEngine(t, testProviders("alpha", "beta", "gamma"), pushers)

	results := engine.Fanout(context.Background(), 1, "shop.example", sampleProducts(2), []string{"alpha", "beta", "gamma"})

	assert.Len(t, results, 3)
	assert.True(t, resultFor(t, results, "alpha").Success)
	assert.True(t, resultFor(t, results, "gamma").Success)

	beta := resultFor(t, results, "beta")
	assert.False(t, beta.Success)
	assert.Equal(t, ClassTerminal, beta.Classification)
	// Terminal rejection stops retrying immediately.
	assert.Equal(t, 1, beta.AttemptsMade)
	assert.Equal(t, 1, pushers["beta"].Calls())
}

func TestFanoutRetriesTransientWithinBudget(t *testing.T) {
	transient := errors.New("connection reset")
	pushers := map[string]*stubPusher{
		"alpha": {errs: []error{transient, transient}},
	}
	engine := newTestEngine(t, testProviders("alpha"), pushers)

	results := engine.Fanout(context.Background(), 1, "shop.example", sampleProducts(1), []string{"alpha"})

	alpha := resultFor(t, results, "alpha")
	assert.True(t, alpha.Success)
	assert.Equal(t, 3, alpha.AttemptsMade)
}

func TestFanoutExhaustsRetryBudget(t *testing.T) {
	transient := errors.New("connection reset")
	pushers := map[string]*stubPusher{
		"alpha": {errs: []error{transient, transient, transient, transient}},
	}
	providers := testProviders("alpha")
	providers.Providers[0].MaxAttempts = 2
	engine := newTestEngine(t, providers, pushers)

	results := engine.Fanout(context.Background(), 1, "shop.example", sampleProducts(1), []string{"alpha"})

	alpha := resultFor(t, results, "alpha")
	assert.False(t, alpha.Success)
	assert.Equal(t, ClassTransient, alpha.Classification)
	assert.Equal(t, 2, alpha.AttemptsMade)
	assert.Equal(t, 2, pushers["alpha"].Calls())
}

func TestFanoutNotConfiguredProvider(t *testing.T) {
	engine := newTestEngine(t, testProviders("alpha"), map[string]*stubPusher{"alpha": {}})

	results := engine.Fanout(context.Background(), 1, "shop.example", sampleProducts(1), []string{"alpha", "ghost"})

	assert.True(t, resultFor(t, results, "alpha").Success)
	ghost := resultFor(t, results, "ghost")
	assert.False(t, ghost.Success)
	assert.Equal(t, ClassNotConfigured, ghost.Classification)
	assert.Zero(t, ghost.AttemptsMade)
}

func TestFanoutEmptyProviderList(t *testing.T) {
	engine := newTestEngine(t, testProviders(), map[string]*stubPusher{})

	results := engine.Fanout(context.Background(), 1, "shop.example", sampleProducts(1), nil)
	assert.Empty(t, results)
}

func TestBuildPayloadBounds(t *testing.T) {
	engine := newTestEngine(t, testProviders("alpha"), map[string]*stubPusher{})
	engine.cfg.MaxFieldLen = 5

	long := catalogdomain.Product{
		ExternalID:  "x",
		Title:       "abcdefghij",
		Description: "short",
	}
	payload := engine.buildPayload(9, "shop.example", []catalogdomain.Product{long, long, long}, 2)

	assert.Len(t, payload.Items, 2)
	assert.Equal(t, "abcde", payload.Items[0].Title)
	assert.Equal(t, "short", payload.Items[0].Description)
	assert.Equal(t, int64(9), payload.TenantID)
}
