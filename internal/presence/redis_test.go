package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"satupapan/internal/protocol"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements the handful of commands the mirror issues.
type fakeRedis struct {
	redis.Cmdable

	mu        sync.Mutex
	hashes    map[string]map[string]string
	ttls      map[string]time.Duration
	published map[string][]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		hashes:    map[string]map[string]string{},
		ttls:      map[string]time.Duration{},
		published: map[string][]string{},
	}
}

func (f *fakeRedis) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.hashes[key]
	if h == nil {
		h = map[string]string{}
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[fmt.Sprint(values[i])] = fmt.Sprint(values[i+1])
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(values) / 2))
	return cmd
}

func (f *fakeRedis) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls[key] = ttl
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.hashes, k)
		delete(f.ttls, k)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[channel] = append(f.published[channel], string(message.([]byte)))
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func (f *fakeRedis) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	cmd := redis.NewMapStringStringCmd(ctx)
	cmd.SetVal(out)
	return cmd
}

func (f *fakeRedis) messages(channel string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published[channel]...)
}

func TestMirrorWritesCountsAndPublishes(t *testing.T) {
	rdb := newFakeRedis()
	m := NewMirror(rdb, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	m.Update("doc-1", protocol.Counts{Collaborators: 2, Viewers: 1})

	require.Eventually(t, func() bool {
		_, ok, err := m.Get(ctx, "doc-1")
		return err == nil && ok
	}, time.Second, 5*time.Millisecond)

	counts, _, err := m.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, protocol.Counts{Collaborators: 2, Viewers: 1}, counts)

	require.Eventually(t, func() bool { return len(rdb.messages(Channel("doc-1"))) == 1 }, time.Second, 5*time.Millisecond)
	var change Change
	require.NoError(t, json.Unmarshal([]byte(rdb.messages(Channel("doc-1"))[0]), &change))
	assert.Equal(t, "doc-1", change.DocumentID)
	assert.Equal(t, 2, change.Collaborators)

	rdb.mu.Lock()
	assert.Equal(t, time.Minute, rdb.ttls[Key("doc-1")])
	rdb.mu.Unlock()
}

func TestMirrorDeletesEmptyRooms(t *testing.T) {
	rdb := newFakeRedis()
	m := NewMirror(rdb, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	m.Update("doc-1", protocol.Counts{Viewers: 1})
	require.Eventually(t, func() bool { return len(rdb.messages(Channel("doc-1"))) == 1 }, time.Second, 5*time.Millisecond)

	m.Update("doc-1", protocol.Counts{})
	require.Eventually(t, func() bool { return len(rdb.messages(Channel("doc-1"))) == 2 }, time.Second, 5*time.Millisecond)

	_, ok, err := m.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMirrorCoalescesPendingUpdates(t *testing.T) {
	m := NewMirror(newFakeRedis(), time.Minute)

	m.Update("doc-1", protocol.Counts{Collaborators: 1})
	m.Update("doc-1", protocol.Counts{Collaborators: 3})
	m.Update("doc-2", protocol.Counts{Viewers: 1})

	pending := m.drain()
	assert.Equal(t, map[string]protocol.Counts{
		"doc-1": {Collaborators: 3},
		"doc-2": {Viewers: 1},
	}, pending)
	assert.Empty(t, m.drain())
}
