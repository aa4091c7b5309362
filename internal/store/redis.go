package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/i474232898/marine-conditions/internal/weather"
)

// RedisTier shares computed forecasts between instances.
type RedisTier struct {
	client *redis.Client
	prefix string
}

// NewRedisTier creates a tier on an existing client.
func NewRedisTier(client *redis.Client) *RedisTier {
	return &RedisTier{client: client, prefix: "forecast:"}
}

// NewRedisTierFromURL parses a redis:// URL and pings the server.
func NewRedisTierFromURL(ctx context.Context, url string) (*RedisTier, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRedisTier(client), nil
}

// Load returns the stored result and its remaining lifetime; any redis or
// decode error counts as a miss. Keys without an expiry are treated as missing.
func (t *RedisTier) Load(ctx context.Context, key string) (*weather.ForecastResult, time.Duration, bool) {
	var (
		get  *redis.StringCmd
		pttl *redis.DurationCmd
	)
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, t.prefix+key)
		pttl = pipe.PTTL(ctx, t.prefix+key)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return nil, 0, false
	}
	if err != nil {
		log.WithField("key", key).Warnf("redis get failed: %v", err)
		return nil, 0, false
	}

	remaining := pttl.Val()
	if remaining <= 0 {
		return nil, 0, false
	}

	data, err := get.Bytes()
	if err != nil {
		return nil, 0, false
	}

	var res weather.ForecastResult
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&res); err != nil {
		log.WithField("key", key).Warnf("decoding cached forecast failed: %v", err)
		return nil, 0, false
	}
	return &res, remaining, true
}

// Save stores result with the given TTL. Failures are logged only.
func (t *RedisTier) Save(ctx context.Context, key string, result *weather.ForecastResult, ttl time.Duration) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(result); err != nil {
		log.WithField("key", key).Warnf("encoding forecast failed: %v", err)
		return
	}
	if err := t.client.Set(ctx, t.prefix+key, buf.Bytes(), ttl).Err(); err != nil {
		log.WithField("key", key).Warnf("redis set failed: %v", err)
	}
}

// Close releases the client.
func (t *RedisTier) Close() error {
	return t.client.Close()
}
