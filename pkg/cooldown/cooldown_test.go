package cooldown

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/require"
)

// useTempCacheHome 把XDG缓存目录重定向到测试临时目录
func useTempCacheHome(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(xdg.Reload)
}

func TestTracker_RecordAndCanSubmit(t *testing.T) {
	useTempCacheHome(t)

	tracker := Load()
	ok, wait := tracker.CanSubmit("type-1")
	require.True(t, ok)
	require.Zero(t, wait)

	tracker.Record("type-1", 30)

	ok, wait = tracker.CanSubmit("type-1")
	require.False(t, ok)
	require.Greater(t, wait, 0)
	require.LessOrEqual(t, wait, 30)

	// 其它类型不受影响
	ok, _ = tracker.CanSubmit("type-2")
	require.True(t, ok)
}

func TestTracker_PersistsAcrossLoads(t *testing.T) {
	useTempCacheHome(t)

	Load().Record("type-1", 30)

	reloaded := Load()
	ok, _ := reloaded.CanSubmit("type-1")
	require.False(t, ok)
}

func TestTracker_ExpiredEntryAllows(t *testing.T) {
	useTempCacheHome(t)

	tracker := Load()
	tracker.state.Entries["type-1"] = entry{
		LastSubmit:      time.Now().Add(-time.Minute),
		CooldownSeconds: 30,
	}

	ok, wait := tracker.CanSubmit("type-1")
	require.True(t, ok)
	require.Zero(t, wait)
}

func TestLoad_SweepsStaleEntries(t *testing.T) {
	useTempCacheHome(t)

	tracker := Load()
	tracker.Record("fresh", 30)
	tracker.state.Entries["stale"] = entry{
		LastSubmit:      time.Now().Add(-2 * time.Hour),
		CooldownSeconds: 30,
	}
	tracker.save()

	reloaded := Load()
	require.Contains(t, reloaded.state.Entries, "fresh")
	require.NotContains(t, reloaded.state.Entries, "stale")
}

func TestLoad_CorruptionResetsToEmpty(t *testing.T) {
	useTempCacheHome(t)

	path := filepath.Join(xdg.CacheHome, AppName, fileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	tracker := Load()
	require.Empty(t, tracker.state.Entries)

	ok, _ := tracker.CanSubmit("type-1")
	require.True(t, ok)
}

func TestLoad_VersionMismatchResets(t *testing.T) {
	useTempCacheHome(t)

	old := store{
		Version: "v0",
		Entries: map[string]entry{"type-1": {LastSubmit: time.Now(), CooldownSeconds: 30}},
	}
	data, err := json.Marshal(old)
	require.NoError(t, err)

	path := filepath.Join(xdg.CacheHome, AppName, fileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o600))

	tracker := Load()
	require.Empty(t, tracker.state.Entries)
}
