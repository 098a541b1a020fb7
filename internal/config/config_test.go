package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	result := cfg.ValidateTiered()
	assert.False(t, result.HasFatals())
}

func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sscontrol.toml")

	cfg := Default()
	cfg.Server.RoomID = "test-room"
	cfg.WebRTC.Codec = "h264"
	require.NoError(t, SaveTo(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-room", loaded.Server.RoomID)
	assert.Equal(t, "h264", loaded.WebRTC.Codec)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.ListenAddr, cfg.Server.ListenAddr)
}

func TestLoadRejectsUnknownEncoder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sscontrol.toml")
	require.NoError(t, os.WriteFile(path, []byte("[webrtc]\ncodec = \"theora\"\n"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadAPIKeyEnvOverride(t *testing.T) {
	t.Setenv("SSCONTROL_API_KEY", "env-supplied-key")
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, "env-supplied-key", cfg.Security.APIKey)
}
