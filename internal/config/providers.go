package config

import (
	"errors"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ProviderConfig describes one external AI endpoint the catalog is pushed to.
type ProviderConfig struct {
	Name        string        `mapstructure:"name"`
	Endpoint    string        `mapstructure:"endpoint"`
	APIKey      string        `mapstructure:"apiKey"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"maxAttempts"`
	MaxItems    int           `mapstructure:"maxItems"`
}

// ProvidersConfig is the full provider section of the config file.
type ProvidersConfig struct {
	Providers []ProviderConfig `mapstructure:"providers"`
}

func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{Providers: nil}
}

// Lookup returns the configuration for a provider name, nil if absent.
func (c ProvidersConfig) Lookup(name string) *ProviderConfig {
	for i := range c.Providers {
		if strings.EqualFold(c.Providers[i].Name, name) {
			return &c.Providers[i]
		}
	}
	return nil
}

// ProviderConfigHolder keeps the live provider configuration and hot-reloads
// it when the underlying file changes, so credentials rotate without restart.
type ProviderConfigHolder struct {
	current atomic.Value // holds ProvidersConfig
}

func NewProviderConfigHolder(cfg Config) (*ProviderConfigHolder, error) {
	holder := &ProviderConfigHolder{}

	v := viper.New()
	if cfg.ProvidersFile != "" {
		v.SetConfigFile(cfg.ProvidersFile)
	} else {
		v.SetConfigName("providers")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/catalogsync")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CATALOGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err, cfg.ProvidersFile) {
			return nil, err
		}
		holder.current.Store(DefaultProvidersConfig())
		return holder, nil
	}

	var parsed ProvidersConfig
	if err := v.Unmarshal(&parsed); err != nil {
		return nil, err
	}
	if err := validateProvidersConfig(parsed); err != nil {
		return nil, err
	}
	holder.current.Store(parsed)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ProvidersConfig
		if err := v.Unmarshal(&updated); err != nil {
			log.Printf("[providers-config] reload failed: %v", err)
			return
		}
		if err := validateProvidersConfig(updated); err != nil {
			log.Printf("[providers-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[providers-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticProviderConfigHolder returns a holder with a fixed config, for tests.
func NewStaticProviderConfigHolder(cfg ProvidersConfig) *ProviderConfigHolder {
	holder := &ProviderConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *ProviderConfigHolder) Get() ProvidersConfig {
	return h.current.Load().(ProvidersConfig)
}

func validateProvidersConfig(cfg ProvidersConfig) error {
	seen := make(map[string]struct{}, len(cfg.Providers))
	for _, p := range cfg.Providers {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			return errors.New("providers[].name cannot be empty")
		}
		if _, dup := seen[name]; dup {
			return errors.New("duplicate provider name: " + name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func isMissingFile(err error, file string) bool {
	if file == "" {
		return false
	}
	// viper returns *fs.PathError when SetConfigFile points at a missing path
	return strings.Contains(err.Error(), filepath.Base(file)) && strings.Contains(err.Error(), "no such file")
}
