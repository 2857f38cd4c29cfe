// Package worker consumes insert notifications and replaces the placeholder
// status of each index with its computed Fibonacci value.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/panda1920/docker-kubernates/internal/values"
)

// MaxFibIndex is the largest index whose value fits in a uint64.
const MaxFibIndex = 92

type Cache interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
	HashSet(ctx context.Context, key, field, value string) error
}

type Worker struct {
	cache      Cache
	retryDelay time.Duration
	clock      clock.Clock
	log        *zap.Logger
}

type Option func(*Worker)

func WithClock(clk clock.Clock) Option {
	return func(w *Worker) {
		w.clock = clk
	}
}

func New(cache Cache, retryDelay time.Duration, logger *zap.Logger, opts ...Option) *Worker {
	w := &Worker{
		cache:      cache,
		retryDelay: retryDelay,
		clock:      clock.RealClock{},
		log:        logger.Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run subscribes to the insert channel and handles messages until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	sub := w.cache.Subscribe(ctx, values.InsertChannel)
	defer sub.Close()

	for {
		_, err := sub.Receive(ctx)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil
		}
		w.log.Warn("failed to subscribe", zap.Error(err), zap.Duration("retry_in", w.retryDelay))

		select {
		case <-ctx.Done():
			return nil
		case <-w.clock.After(w.retryDelay):
		}
	}
	w.log.Info("subscribed", zap.String("channel", values.InsertChannel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := w.Handle(ctx, msg.Payload); err != nil {
				w.log.Warn("dropped insert notification", zap.String("payload", msg.Payload), zap.Error(err))
			}
		}
	}
}

func (w *Worker) Handle(ctx context.Context, payload string) error {
	index, err := strconv.Atoi(payload)
	if err != nil {
		return fmt.Errorf("not an integer: %w", values.ErrInvalid)
	}
	if index < 0 || index > MaxFibIndex {
		return fmt.Errorf("index %d out of range: %w", index, values.ErrInvalid)
	}

	result := strconv.FormatUint(Fib(index), 10)
	if err := w.cache.HashSet(ctx, values.ValuesKey, payload, result); err != nil {
		return err
	}
	w.log.Debug("computed", zap.Int("index", index), zap.String("value", result))

	return nil
}

// Fib returns the Fibonacci number for index, counting Fib(0) = Fib(1) = 1.
func Fib(index int) uint64 {
	a, b := uint64(1), uint64(1)
	for i := 1; i < index; i++ {
		a, b = b, a+b
	}

	return b
}
