package values

import (
	"context"
	"errors"
	"math"
	"sync"
)

// journal records the order in which store operations were issued.
type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(call string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, call)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

type fakeRepo struct {
	mu        sync.Mutex
	journal   *journal
	rows      []StoredValue
	insertErr error
	readErr   error
}

func (r *fakeRepo) EnsureTable(ctx context.Context) error {
	return nil
}

func (r *fakeRepo) InsertValue(ctx context.Context, number int) error {
	r.journal.add("insert")
	if r.insertErr != nil {
		return r.insertErr
	}
	if number < math.MinInt32 || number > math.MaxInt32 {
		return errors.New("pq: value is out of range for type integer")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, StoredValue{Number: number})

	return nil
}

func (r *fakeRepo) AllValues(ctx context.Context) ([]StoredValue, error) {
	if r.readErr != nil {
		return nil, r.readErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]StoredValue(nil), r.rows...), nil
}

type fakeCache struct {
	mu         sync.Mutex
	journal    *journal
	hashes     map[string]map[string]string
	published  map[string][]string
	setErr     error
	publishErr error
	readErr    error
}

func newFakeCache(j *journal) *fakeCache {
	return &fakeCache{
		journal:   j,
		hashes:    map[string]map[string]string{},
		published: map[string][]string{},
	}
}

func (c *fakeCache) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	if c.readErr != nil {
		return nil, c.readErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	hash, ok := c.hashes[key]
	if !ok {
		return nil, nil
	}
	out := make(map[string]string, len(hash))
	for k, v := range hash {
		out[k] = v
	}

	return out, nil
}

func (c *fakeCache) HashSet(ctx context.Context, key, field, value string) error {
	c.journal.add("hset")
	if c.setErr != nil {
		return c.setErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hashes[key] == nil {
		c.hashes[key] = map[string]string{}
	}
	c.hashes[key][field] = value

	return nil
}

func (c *fakeCache) Publish(ctx context.Context, channel, message string) error {
	c.journal.add("publish")
	if c.publishErr != nil {
		return c.publishErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.published[channel] = append(c.published[channel], message)

	return nil
}
