package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"Loopline.com/config"
)

var rdb *redis.Client

// Init connects the count cache. The cache is best-effort everywhere it
// is used; a missing or unreachable redis only disables it.
func Init() {
	rdb = redis.NewClient(&redis.Options{
		Addr:     config.ConfigInfo.Redis.Addr,
		Password: config.ConfigInfo.Redis.Password,
		DB:       config.ConfigInfo.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logrus.Errorf("failed to connect redis: %v", err)
		rdb = nil
		return
	}
	logrus.Infof("redis connected: %s", config.ConfigInfo.Redis.Addr)
}

// Close releases the connection and disables the cache.
func Close() {
	if rdb == nil {
		return
	}
	if err := rdb.Close(); err != nil {
		logrus.Warnf("failed to close redis client: %v", err)
	}
	rdb = nil
}
