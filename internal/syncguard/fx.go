package syncguard

import (
	"time"

	"github.com/merchantiq/catalogsync/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient connects to redis when an address is configured. Without
// one the guard stays disabled and overlapping runs are tolerated.
func NewRedisClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, sync overlap guard disabled")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func NewGuard(client *redis.Client) *Guard {
	return New(client, 15*time.Minute)
}

var Module = fx.Module("syncguard",
	fx.Provide(NewRedisClient),
	fx.Provide(NewGuard),
)
