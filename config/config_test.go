package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_ADDR", "")
	t.Setenv("ROOM_SNAPSHOT_INTERVAL", "")
	t.Setenv("REDIS_ENABLED", "")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, time.Duration(0), cfg.Room.SnapshotInterval)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9000")
	t.Setenv("WS_PING_INTERVAL", "45")
	t.Setenv("ROOM_SNAPSHOT_INTERVAL", "1m30s")
	t.Setenv("REDIS_ENABLED", "yes")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 45*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 90*time.Second, cfg.Room.SnapshotInterval)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 0, cfg.Redis.DB)
}
