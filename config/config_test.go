package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VIEWER_SNAPSHOT_INTERVAL_SEC", "")
	t.Setenv("ENFORCE_FEATURE_FLAGS", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.Realtime.SnapshotInterval)
	assert.False(t, cfg.Realtime.EnforceFeatureFlags)
	assert.NotEmpty(t, cfg.Realtime.RedactionMarker)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VIEWER_SNAPSHOT_INTERVAL_SEC", "5")
	t.Setenv("ENFORCE_FEATURE_FLAGS", "true")
	t.Setenv("CHAT_DENY_LIST", "spam, scam ,,")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Realtime.SnapshotInterval)
	assert.True(t, cfg.Realtime.EnforceFeatureFlags)
	assert.Equal(t, []string{"spam", "scam"}, cfg.Realtime.DenyList)
}

func TestLoadRejectsZeroSnapshotInterval(t *testing.T) {
	t.Setenv("VIEWER_SNAPSHOT_INTERVAL_SEC", "0")
	_, err := Load()
	require.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "1", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:1/d?sslmode=disable", c.DSN())
	c.URL = "postgres://x"
	assert.Equal(t, "postgres://x", c.DSN())
}
