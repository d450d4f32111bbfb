package cache

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	settingKeyPrefix = "setting:"
	settingTTL       = 5 * time.Minute
)

var client *redis.Client

// Init initializes the Redis connection. The cache is optional: when
// Redis is unreachable the rest of the system falls back to direct
// database reads.
func Init() error {
	// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
	host := os.Getenv("REDIS_SERVICE_HOST")
	if host == "" {
		host = "redis" // fallback to service name
	}
	port := os.Getenv("REDIS_SERVICE_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetClient returns the Redis client
func GetClient() *redis.Client {
	return client
}

// GetSetting returns a cached system-setting value
func GetSetting(ctx context.Context, key string) (string, bool) {
	if client == nil {
		return "", false
	}
	value, err := client.Get(ctx, settingKeyPrefix+key).Result()
	if err != nil {
		return "", false
	}
	return value, true
}

// CacheSetting stores a system-setting value for a few minutes. Writes
// to the settings table must call InvalidateSetting.
func CacheSetting(ctx context.Context, key, value string) {
	if client == nil {
		return
	}
	client.Set(ctx, settingKeyPrefix+key, value, settingTTL)
}

// InvalidateSetting drops a cached setting after an update
func InvalidateSetting(ctx context.Context, key string) {
	if client == nil {
		return
	}
	client.Del(ctx, settingKeyPrefix+key)
}

// Close shuts down the Redis connection
func Close() {
	if client != nil {
		client.Close()
		client = nil
	}
}
