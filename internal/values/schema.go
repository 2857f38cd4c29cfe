package values

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

const (
	MaxSchemaAttempts = 10
	SchemaRetryDelay  = 2 * time.Second
)

type SchemaState int

const (
	SchemaPending SchemaState = iota
	SchemaReady
	SchemaFailed
)

func (s SchemaState) String() string {
	switch s {
	case SchemaPending:
		return "pending"
	case SchemaReady:
		return "ready"
	case SchemaFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SchemaInitializer repeatedly runs a schema step until it succeeds or the
// attempt budget is spent. Ready and Failed are final.
type SchemaInitializer struct {
	ensure      func(context.Context) error
	clock       clock.Clock
	maxAttempts int
	delay       time.Duration
	log         *zap.Logger

	mu       sync.Mutex
	state    SchemaState
	attempts int
	started  bool
	done     chan struct{}
}

type SchemaOption func(*SchemaInitializer)

func WithSchemaClock(clk clock.Clock) SchemaOption {
	return func(s *SchemaInitializer) {
		s.clock = clk
	}
}

func WithSchemaRetry(maxAttempts int, delay time.Duration) SchemaOption {
	return func(s *SchemaInitializer) {
		s.maxAttempts = maxAttempts
		s.delay = delay
	}
}

func WithSchemaLogger(logger *zap.Logger) SchemaOption {
	return func(s *SchemaInitializer) {
		s.log = logger.Named("schema")
	}
}

func NewSchemaInitializer(ensure func(context.Context) error, opts ...SchemaOption) *SchemaInitializer {
	s := &SchemaInitializer{
		ensure:      ensure,
		clock:       clock.RealClock{},
		maxAttempts: MaxSchemaAttempts,
		delay:       SchemaRetryDelay,
		log:         zap.NewNop(),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start runs the initializer in the background and returns immediately.
// Calling Start more than once has no effect.
func (s *SchemaInitializer) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	go s.run(ctx)
}

// Wait blocks until the initializer reaches a final state or ctx is done.
func (s *SchemaInitializer) Wait(ctx context.Context) SchemaState {
	select {
	case <-s.done:
	case <-ctx.Done():
	}

	return s.State()
}

func (s *SchemaInitializer) Done() <-chan struct{} {
	return s.done
}

func (s *SchemaInitializer) State() SchemaState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *SchemaInitializer) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attempts
}

func (s *SchemaInitializer) run(ctx context.Context) {
	defer close(s.done)

	for attempt := 1; ; attempt++ {
		s.mu.Lock()
		s.attempts = attempt
		s.mu.Unlock()

		err := s.ensure(ctx)
		if err == nil {
			s.log.Info("table created", zap.Int("attempt", attempt))
			s.finish(SchemaReady)
			return
		}

		s.log.Warn("failed to create table", zap.Int("attempt", attempt), zap.Error(err))

		if attempt >= s.maxAttempts {
			s.log.Error("failed to create table after repeated attempts, make sure all configurations are correct",
				zap.Int("attempts", attempt))
			s.finish(SchemaFailed)
			return
		}

		s.log.Info("retrying", zap.Duration("delay", s.delay))

		select {
		case <-ctx.Done():
			s.log.Warn("schema initialization cancelled", zap.Error(ctx.Err()))
			s.finish(SchemaFailed)
			return
		case <-s.clock.After(s.delay):
		}
	}
}

func (s *SchemaInitializer) finish(state SchemaState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
}
