package worker

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/panda1920/docker-kubernates/internal/infra"
	"github.com/panda1920/docker-kubernates/internal/values"
)

type noSecrets struct{}

func (noSecrets) GetDBPassword() string    { return "" }
func (noSecrets) GetRedisPassword() string { return "" }

func newTestWorker(t *testing.T, opts ...Option) (*Worker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	cfg := &infra.RedisConfig{Host: host, Port: p, RetryDelay: 10 * time.Millisecond, MaxRetries: 1}
	cache := infra.NewCache(cfg, noSecrets{}, zap.NewNop())
	t.Cleanup(func() { cache.Close() })

	return New(cache, cfg.RetryDelay, zap.NewNop(), opts...), mr
}

func TestFib(t *testing.T) {
	want := []uint64{1, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89}
	for i, w := range want {
		assert.Equal(t, w, Fib(i), "index %d", i)
	}
	assert.Equal(t, uint64(165580141), Fib(40))
	assert.Equal(t, uint64(12200160415121876738), Fib(MaxFibIndex))
}

func TestHandle(t *testing.T) {
	w, mr := newTestWorker(t)
	ctx := context.Background()

	require.NoError(t, w.Handle(ctx, "10"))
	assert.Equal(t, "89", mr.HGet(values.ValuesKey, "10"))

	for _, payload := range []string{"abc", "", "-1", "93"} {
		assert.ErrorIs(t, w.Handle(ctx, payload), values.ErrInvalid, payload)
	}
}

func TestRunReplacesPlaceholder(t *testing.T) {
	w, mr := newTestWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr.HSet(values.ValuesKey, "7", values.PlaceholderStatus)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(values.InsertChannel)[values.InsertChannel] == 1
	}, 5*time.Second, time.Millisecond)

	mr.Publish(values.InsertChannel, "bogus")
	mr.Publish(values.InsertChannel, "7")

	require.Eventually(t, func() bool {
		return mr.HGet(values.ValuesKey, "7") == "21"
	}, 5*time.Second, time.Millisecond)
	assert.Empty(t, mr.HGet(values.ValuesKey, "bogus"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRunRetriesSubscribeOnClock(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Now())
	w, mr := newTestWorker(t, WithClock(clk))
	mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, clk.HasWaiters, 5*time.Second, time.Millisecond)
	assert.Zero(t, mr.PubSubNumSub(values.InsertChannel)[values.InsertChannel])

	require.NoError(t, mr.Restart())
	require.Eventually(t, func() bool {
		if clk.HasWaiters() {
			clk.Step(10 * time.Millisecond)
		}
		return mr.PubSubNumSub(values.InsertChannel)[values.InsertChannel] == 1
	}, 5*time.Second, time.Millisecond)

	mr.Publish(values.InsertChannel, "4")
	require.Eventually(t, func() bool {
		return mr.HGet(values.ValuesKey, "4") == "5"
	}, 5*time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
