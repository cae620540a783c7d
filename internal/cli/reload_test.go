package cli

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tobert/reactmon/internal/fetch"
)

func TestWatchConfigAppliesHostChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{"monitored_host": "first:1"}`)

	target := fetch.NewTarget("first:1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := WatchConfig(ctx, path, target, nil)
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, os.WriteFile(path, []byte(`{"monitored_host": "second:2"}`), 0o644))

	require.Eventually(t, func() bool {
		return target.Address() == "second:2"
	}, 3*time.Second, 10*time.Millisecond, "watcher should apply the new host")
}

func TestWatchConfigIgnoresBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{"monitored_host": "first:1"}`)

	target := fetch.NewTarget("first:1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := WatchConfig(ctx, path, target, nil)
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))

	// Give the watcher a moment; the target must stay put.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, "first:1", target.Address())
}

func TestWatchConfigMissingDirectory(t *testing.T) {
	target := fetch.NewTarget("x:1")
	_, err := WatchConfig(context.Background(), "/nonexistent-dir/config.json", target, nil)
	assert.Error(t, err)
}

func TestApplyConfigChangeSameHostNoop(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{"monitored_host": "same:1"}`)

	target := fetch.NewTarget("same:1")
	applyConfigChange(path, target, zap.NewNop())
	assert.Equal(t, "same:1", target.Address())
}
