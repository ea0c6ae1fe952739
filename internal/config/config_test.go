package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, "startCommand: \"echo start\"\n")

	store, err := Load(path)
	require.NoError(t, err)

	cfg := store.Snapshot()
	assert.Equal(t, "0.0.0.0", cfg.ListenHost)
	assert.Equal(t, 25565, cfg.ListenPort)
	assert.Equal(t, 20, cfg.ExpectedStartupTime)
	assert.Equal(t, 3, cfg.BandwidthWindow)
}

func TestLoadRequiresStartCommand(t *testing.T) {
	path := writeTempConfig(t, "listenPort: 25566\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestUpdateServerVersionPersistsAtomically(t *testing.T) {
	path := writeTempConfig(t, "startCommand: \"echo start\"\n")
	store, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, store.UpdateServerVersion("1.20.1", 763))
	assert.Equal(t, "1.20.1", store.Snapshot().ServerVersionName)

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.20.1", reloaded.Snapshot().ServerVersionName)
	assert.Equal(t, 763, reloaded.Snapshot().ServerProtocol)
}

func TestUpdateServerVersionSkipsNoopWrite(t *testing.T) {
	path := writeTempConfig(t, "startCommand: \"echo start\"\nserverVersionName: \"1.20.4\"\nserverProtocol: 765\n")
	store, err := Load(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	before := info.ModTime()

	require.NoError(t, store.UpdateServerVersion("1.20.4", 765))

	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before, info.ModTime())
}
