package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

const minimalYAML = `
rate: 10
batch_size: 5
sink:
  kind: memory
`

func TestWatcher_initialLoadMustSucceed(t *testing.T) {
	path := writeConfig(t, "rate: -1\n")
	_, err := NewWatcher(path, nil)
	require.Error(t, err)
}

func TestWatcher_reloadSwapsActiveConfig(t *testing.T) {
	path := writeConfig(t, minimalYAML)
	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	require.Equal(t, 10.0, w.Active().Rate)

	var got *Config
	w.Subscribe(func(cfg *Config, err error) {
		require.NoError(t, err)
		got = cfg
	})

	require.NoError(t, os.WriteFile(path, []byte("rate: 99\nbatch_size: 5\nsink:\n  kind: memory\n"), 0o644))
	require.NoError(t, w.Reload())

	require.Equal(t, 99.0, w.Active().Rate)
	require.NotNil(t, got)
	require.Equal(t, 99.0, got.Rate)
}

func TestWatcher_failedReloadKeepsPreviousConfig(t *testing.T) {
	path := writeConfig(t, minimalYAML)
	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	before := w.Active()

	var notifiedErr error
	notified := false
	w.Subscribe(func(cfg *Config, err error) {
		notified = true
		notifiedErr = err
		require.Nil(t, cfg)
	})

	// batch_size 0 fails validation; the active config must not change.
	require.NoError(t, os.WriteFile(path, []byte("rate: 10\nbatch_size: 0\nsink:\n  kind: memory\n"), 0o644))
	require.Error(t, w.Reload())

	require.Same(t, before, w.Active())
	require.True(t, notified, "listener must hear about failed reloads")
	require.Error(t, notifiedErr)
}

func TestWatcher_watchIsIdempotent(t *testing.T) {
	path := writeConfig(t, minimalYAML)
	w, err := NewWatcher(path, nil)
	require.NoError(t, err)

	w.Watch()
	w.Watch() // second call is a no-op
}
