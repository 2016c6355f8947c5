package config

import (
	"strings"

	"github.com/hibiken/asynq"
)

// AsynqRedisOpt builds the queue-side Redis options from the same settings
// the cache client uses, so the API server and the worker always talk to
// the same broker.
func AsynqRedisOpt(cfg *Config) (asynq.RedisConnOpt, error) {
	if strings.HasPrefix(cfg.RedisURL, "redis://") || strings.HasPrefix(cfg.RedisURL, "rediss://") {
		return asynq.ParseRedisURI(cfg.RedisURL)
	}
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}
