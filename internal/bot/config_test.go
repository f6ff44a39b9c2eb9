package bot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigHotReload(t *testing.T) {
	cases := []struct {
		name       string
		startFirst bool
	}{
		{"config then start", false},
		{"start then config", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			require.NoError(t, os.WriteFile(path, []byte("owner: Steve\nmodes:\n  scan_radius: 16\n"), 0o644))
			b, _ := newTestBot(t)

			if tc.startFirst {
				require.NoError(t, b.Start(context.Background()))
				require.NoError(t, b.UseConfig(path))
			} else {
				require.NoError(t, b.UseConfig(path))
				require.NoError(t, b.Start(context.Background()))
			}
			assert.Equal(t, "Steve", b.config().Owner)
			assert.Equal(t, 16.0, b.config().Modes.ScanRadius)

			require.NoError(t, os.WriteFile(path, []byte("owner: Alex\nmodes:\n  scan_radius: 24\n"), 0o644))
			require.Eventually(t, func() bool { return b.config().Owner == "Alex" }, 3*time.Second, 20*time.Millisecond)
			assert.Equal(t, 24.0, b.config().Modes.ScanRadius)
		})
	}
}

func TestConfigReloadKeepsLastGoodConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("owner: Steve\n"), 0o644))
	b, _ := newTestBot(t)
	require.NoError(t, b.UseConfig(path))
	require.NoError(t, b.Start(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte("owner: [broken\n"), 0o644))
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, "Steve", b.config().Owner)

	require.NoError(t, os.WriteFile(path, []byte("owner: Alex\n"), 0o644))
	require.Eventually(t, func() bool { return b.config().Owner == "Alex" }, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherStopsWithBot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("owner: Steve\n"), 0o644))
	b, _ := newTestBot(t)
	require.NoError(t, b.UseConfig(path))
	require.NoError(t, b.Start(context.Background()))
	b.Stop()

	// после Stop изменения файла больше не применяются
	require.NoError(t, os.WriteFile(path, []byte("owner: Alex\n"), 0o644))
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, "Steve", b.config().Owner)
}
