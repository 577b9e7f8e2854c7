package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MemoryURI selects the in-process repository instead of MongoDB.
const MemoryURI = "memory://"

// swapped in tests
var (
	connect = func(ctx context.Context, uri string) (*mongo.Client, error) {
		return mongo.Connect(ctx, options.Client().ApplyURI(uri))
	}
	ping = func(ctx context.Context, c *mongo.Client) error {
		return c.Ping(ctx, nil)
	}
)

// Connect dials MongoDB and pings it, retrying with exponential backoff until
// maxWait has elapsed. Only startup is retried; requests never are.
func Connect(ctx context.Context, uri string, maxWait time.Duration, logger *zap.SugaredLogger) (*mongo.Client, error) {
	var client *mongo.Client
	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if client == nil {
			c, err := connect(attemptCtx, uri)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("mongo connect: %w", err))
			}
			client = c
		}
		if err := ping(attemptCtx, client); err != nil {
			return fmt.Errorf("mongo ping: %w", err)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxWait
	notify := func(err error, wait time.Duration) {
		logger.Warnw("database not ready", "error", err, "retry_in", wait)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		logger.Errorw("Disconnected", "error", err)
		if client != nil {
			_ = client.Disconnect(context.Background())
		}
		return nil, err
	}
	logger.Info("Connected to Database Successfully")
	return client, nil
}
