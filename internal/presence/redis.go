package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"satupapan/internal/protocol"
	"satupapan/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "presence:whiteboard:"
	channelPrefix = "presence:whiteboard:events:"
	writeTimeout  = 3 * time.Second
)

// Change is the message published on a whiteboard's presence channel.
type Change struct {
	DocumentID string `json:"documentId"`
	protocol.Counts
	At int64 `json:"at"`
}

// Mirror copies room counts into redis so other processes (dashboards, a second server) can read
// them. Update never blocks the hub: the latest counts per whiteboard are kept and written by Run.
type Mirror struct {
	client redis.Cmdable
	ttl    time.Duration

	mu      sync.Mutex
	pending map[string]protocol.Counts
	wake    chan struct{}
}

// Connect builds a client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	logger.Sugar.Infof("[Redis] Connected to %s", addr)
	return client, nil
}

func NewMirror(client redis.Cmdable, ttl time.Duration) *Mirror {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Mirror{
		client:  client,
		ttl:     ttl,
		pending: make(map[string]protocol.Counts),
		wake:    make(chan struct{}, 1),
	}
}

func Key(docID string) string     { return keyPrefix + docID }
func Channel(docID string) string { return channelPrefix + docID }

// Update records the counts of a whiteboard for the next write.
func (m *Mirror) Update(docID string, counts protocol.Counts) {
	m.mu.Lock()
	m.pending[docID] = counts
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Run writes pending updates until ctx is cancelled. Keys of open rooms are refreshed at half the
// TTL so they only expire when this process stops.
func (m *Mirror) Run(ctx context.Context) {
	refresh := time.NewTicker(m.ttl / 2)
	defer refresh.Stop()
	live := map[string]protocol.Counts{}

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.wake:
			for docID, counts := range m.drain() {
				if err := m.write(ctx, docID, counts); err != nil {
					logger.Sugar.Errorf("Failed to mirror presence of %s: %v", docID, err)
					continue
				}
				if counts.Collaborators+counts.Viewers == 0 {
					delete(live, docID)
				} else {
					live[docID] = counts
				}
			}
		case <-refresh.C:
			for docID := range live {
				wctx, cancel := context.WithTimeout(ctx, writeTimeout)
				if err := m.client.Expire(wctx, Key(docID), m.ttl).Err(); err != nil {
					logger.Sugar.Warnf("Failed to refresh presence TTL of %s: %v", docID, err)
				}
				cancel()
			}
		}
	}
}

func (m *Mirror) drain() map[string]protocol.Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending
	m.pending = make(map[string]protocol.Counts)
	return out
}

func (m *Mirror) write(ctx context.Context, docID string, counts protocol.Counts) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	now := time.Now().Unix()
	if counts.Collaborators+counts.Viewers == 0 {
		if err := m.client.Del(ctx, Key(docID)).Err(); err != nil {
			return err
		}
	} else {
		if err := m.client.HSet(ctx, Key(docID),
			"collaborators", counts.Collaborators,
			"viewers", counts.Viewers,
			"updated_at", now,
		).Err(); err != nil {
			return err
		}
		if err := m.client.Expire(ctx, Key(docID), m.ttl).Err(); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(Change{DocumentID: docID, Counts: counts, At: now})
	if err != nil {
		return err
	}
	return m.client.Publish(ctx, Channel(docID), payload).Err()
}

// Get reads the mirrored counts of a whiteboard. ok is false when no process has it open.
func (m *Mirror) Get(ctx context.Context, docID string) (counts protocol.Counts, ok bool, err error) {
	vals, err := m.client.HGetAll(ctx, Key(docID)).Result()
	if err != nil {
		return counts, false, err
	}
	if len(vals) == 0 {
		return counts, false, nil
	}
	if counts.Collaborators, err = strconv.Atoi(vals["collaborators"]); err != nil {
		return counts, false, fmt.Errorf("presence %s: collaborators: %w", docID, err)
	}
	if counts.Viewers, err = strconv.Atoi(vals["viewers"]); err != nil {
		return counts, false, fmt.Errorf("presence %s: viewers: %w", docID, err)
	}
	return counts, true, nil
}
