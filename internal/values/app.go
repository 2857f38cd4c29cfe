package values

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	ValuesKey         = "values"
	InsertChannel     = "insert"
	PlaceholderStatus = "Nothing yet!"
	DefaultMaxIndex   = 40
)

type StoredValue struct {
	Number int `json:"number"`
}

type Repo interface {
	EnsureTable(ctx context.Context) error
	InsertValue(ctx context.Context, number int) error
	AllValues(ctx context.Context) ([]StoredValue, error)
}

type Cache interface {
	HashGetAll(ctx context.Context, key string) (map[string]string, error)
	HashSet(ctx context.Context, key, field, value string) error
	Publish(ctx context.Context, channel, message string) error
}

type App struct {
	repo     Repo
	cache    Cache
	maxIndex int
}

func NewApp(repo Repo, cache Cache, maxIndex int) App {
	return App{
		repo:     repo,
		cache:    cache,
		maxIndex: maxIndex,
	}
}

func (a *App) AllValues(ctx context.Context) ([]StoredValue, error) {
	values, err := a.repo.AllValues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read values: %w: %w", err, ErrInternal)
	}
	if values == nil {
		values = []StoredValue{}
	}

	return values, nil
}

func (a *App) CurrentValues(ctx context.Context) (map[string]string, error) {
	current, err := a.cache.HashGetAll(ctx, ValuesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached values: %w: %w", err, ErrInternal)
	}
	if current == nil {
		current = map[string]string{}
	}

	return current, nil
}

// SubmitIndex records index in the cache, announces it on the insert channel
// and stores it in the database, in that order. A failure stops the sequence;
// earlier writes are not undone.
func (a *App) SubmitIndex(ctx context.Context, index int) error {
	if index > a.maxIndex {
		return fmt.Errorf("%d exceeds %d: %w", index, a.maxIndex, ErrTooHigh)
	}

	field := strconv.Itoa(index)

	if err := a.cache.HashSet(ctx, ValuesKey, field, PlaceholderStatus); err != nil {
		return fmt.Errorf("failed to cache index: %w: %w", err, ErrInternal)
	}

	if err := a.cache.Publish(ctx, InsertChannel, field); err != nil {
		return fmt.Errorf("failed to publish index: %w: %w", err, ErrInternal)
	}

	if err := a.repo.InsertValue(ctx, index); err != nil {
		return fmt.Errorf("failed to insert value: %w: %w", err, ErrInternal)
	}

	return nil
}

// ParseIndex accepts a JSON integer or a string holding a base-10 integer.
// Anything else, including fractions, booleans and null, is ErrInvalid.
// Integers beyond the range of int saturate to math.MaxInt or math.MinInt,
// so the upper bound still rejects every oversized index.
func ParseIndex(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("index is required: %w", ErrInvalid)
	}

	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return 0, fmt.Errorf("index %s: %w", raw, ErrInvalid)
	}

	digits := number.String()
	if strings.ContainsAny(digits, ".eE") {
		return 0, fmt.Errorf("index %s: %w", raw, ErrInvalid)
	}

	index, err := strconv.Atoi(digits)
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(digits, "-") {
			return math.MinInt, nil
		}
		return math.MaxInt, nil
	}
	if err != nil {
		return 0, fmt.Errorf("index %s: %w", raw, ErrInvalid)
	}

	return index, nil
}
