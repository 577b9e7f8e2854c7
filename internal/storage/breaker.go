package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sony/gobreaker"
)

type BreakerOptions struct {
	MaxFailures   uint32        // consecutive failures before opening
	OpenFor       time.Duration // time spent open before probing again
	HalfOpenReqs  uint32
	OnStateChange func(name string, from, to gobreaker.State)
}

// Breaker fails fast while the object store is unhealthy. A missing object is
// an answer, not a failure, and does not count against the breaker.
type Breaker struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Store, o BreakerOptions) *Breaker {
	st := gobreaker.Settings{
		Name:        "object-store",
		MaxRequests: o.HalfOpenReqs,
		Timeout:     o.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= o.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: o.OnStateChange,
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func (b *Breaker) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Upload(ctx, key, contentType, body, size)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

type download struct {
	rc   io.ReadCloser
	size int64
}

func (b *Breaker) Download(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		rc, n, err := b.next.Download(ctx, key)
		if err != nil {
			return nil, err
		}
		return download{rc: rc, size: n}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	d := v.(download)
	return d.rc, d.size, nil
}

func (b *Breaker) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Delete(ctx, key)
	})
	return err
}

func (b *Breaker) PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.PresignURL(ctx, key, ttl)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
