package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "panoguard:"

// IRedis is a small JSON cache. A client built without REDIS_ADDRESS is
// disabled: reads miss and writes are dropped.
type IRedis interface {
	Enabled() bool
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type redisClient struct {
	client *redis.Client
	log    logrus.FieldLogger
}

func New(log logrus.FieldLogger) IRedis {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		log.Info("REDIS_ADDRESS not set, prediction cache disabled")
		return &redisClient{log: log}
	}

	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

	log.WithField("address", addr).Info("Connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.WithField("error", err.Error()).Error("Failed to connect to Redis")
	} else {
		log.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client, log: log}
}

// TTLFromEnv reads PREDICTION_CACHE_TTL, defaulting to 24h.
func TTLFromEnv() time.Duration {
	ttl, err := time.ParseDuration(os.Getenv("PREDICTION_CACHE_TTL"))
	if err != nil || ttl <= 0 {
		return 24 * time.Hour
	}
	return ttl
}

func (r *redisClient) Enabled() bool { return r.client != nil }

func (r *redisClient) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if r.client == nil {
		return false, nil
	}

	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		r.log.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Error("Error reading cache entry")
		return false, err
	}

	if err := jsoniter.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func (r *redisClient) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := jsoniter.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}

	if err := r.client.Set(ctx, keyPrefix+key, payload, expiration).Err(); err != nil {
		r.log.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Error("Error writing cache entry")
		return err
	}
	return nil
}

func (r *redisClient) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	return r.client.Del(ctx, keyPrefix+key).Err()
}

func (r *redisClient) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
