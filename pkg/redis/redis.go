package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	URL          string        `envconfig:"URL" split_words:"true"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"3s"`
}

func MustNew(ctx context.Context, cfg Config) *redis.Client {
	client, err := New(ctx, cfg)
	if err != nil {
		panic(err)
	}
	return client
}

func New(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return client, nil
}
