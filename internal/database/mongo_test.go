package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func swap(t *testing.T, c func(context.Context, string) (*mongo.Client, error), p func(context.Context, *mongo.Client) error) {
	t.Helper()
	oc, op := connect, ping
	t.Cleanup(func() { connect, ping = oc, op })
	connect, ping = c, p
}

func TestConnect_RetriesPingUntilReady(t *testing.T) {
	dials := 0
	pings := 0
	swap(t,
		func(ctx context.Context, uri string) (*mongo.Client, error) {
			dials++
			return &mongo.Client{}, nil
		},
		func(ctx context.Context, c *mongo.Client) error {
			pings++
			if pings < 3 {
				return errors.New("server selection timeout")
			}
			return nil
		})

	c, err := Connect(context.Background(), "mongodb://x", 10*time.Second, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, 1, dials)
	assert.Equal(t, 3, pings)
}

func TestConnect_BadURIIsPermanent(t *testing.T) {
	dials := 0
	swap(t,
		func(ctx context.Context, uri string) (*mongo.Client, error) {
			dials++
			return nil, errors.New("error parsing uri")
		},
		func(ctx context.Context, c *mongo.Client) error { return nil })

	_, err := Connect(context.Background(), "bad", 10*time.Second, zap.NewNop().Sugar())
	assert.ErrorContains(t, err, "error parsing uri")
	assert.Equal(t, 1, dials)
}
