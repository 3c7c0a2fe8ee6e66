package app

import (
	"time"

	"github.com/communityvault/backend/internal/platform/envutil"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/queue"
)

type Config struct {
	Port             string
	RedisAddr        string
	BroadcastWorkers int
	Queue            queue.RedisQueueConfig
}

func LoadConfig(log *logger.Logger) Config {
	redisAddr := envutil.Str("REDIS_ADDR", "")
	return Config{
		Port:             envutil.Str("PORT", "8080"),
		RedisAddr:        redisAddr,
		BroadcastWorkers: envutil.Int("BROADCAST_WORKERS", 2),
		Queue: queue.RedisQueueConfig{
			Addr:       redisAddr,
			Password:   envutil.Str("REDIS_PASSWORD", ""),
			Stream:     envutil.Str("QUEUE_STREAM", "comvault:broadcast"),
			Group:      envutil.Str("QUEUE_GROUP", "broadcast-workers"),
			JobTTL:     time.Duration(envutil.Int("QUEUE_JOB_TTL_SECONDS", 86400)) * time.Second,
			MaxRetries: envutil.Int("QUEUE_MAX_RETRIES", 3),
		},
	}
}
