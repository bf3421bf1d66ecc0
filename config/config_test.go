// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hushcomm/hush/def"
)

func TestParseDefaults(t *testing.T) {
	c, err := Parse([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4777", c.Listen)
	assert.Equal(t, StoreMemory, c.Store)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, uint64(def.MessageCountThreshold), c.Rotation.MessageCountThreshold)
	assert.Equal(t, def.SessionKeyExpiry, c.Rotation.SessionKeyExpiry.Std())
	assert.Equal(t, def.KeyTransitionPeriod, c.Rotation.KeyTransitionPeriod.Std())
	assert.Equal(t, def.LeaseTTL, c.Rotation.LeaseTTL.Std())
	assert.Equal(t, def.MaxQueuedEnvelopes, c.Relay.QueueCapacity)
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
listen: "0.0.0.0:9000"
dataDir: /var/lib/hush
store: badger
logLevel: debug
rotation:
  messageCountThreshold: 10
  sessionKeyExpiry: 1h
  keyTransitionPeriod: 30s
  leaseTTL: 5s
relay:
  queueCapacity: 16
`))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", c.Listen)
	assert.Equal(t, "/var/lib/hush", c.DataDir)
	assert.Equal(t, StoreBadger, c.Store)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, uint64(10), c.Rotation.MessageCountThreshold)
	assert.Equal(t, time.Hour, c.Rotation.SessionKeyExpiry.Std())
	assert.Equal(t, 30*time.Second, c.Rotation.KeyTransitionPeriod.Std())
	assert.Equal(t, 5*time.Second, c.Rotation.LeaseTTL.Std())
	assert.Equal(t, 16, c.Relay.QueueCapacity)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown store", "store: redis"},
		{"malformed duration", "rotation:\n  leaseTTL: soon"},
		{"unknown field", "listne: x"},
		{"transition above expiry", "rotation:\n  sessionKeyExpiry: 1m\n  keyTransitionPeriod: 2m"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hush.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: keydb\n"), 0600))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StoreKeyDB, c.Store)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
