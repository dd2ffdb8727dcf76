package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glovebox.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
name = "arena"
match_id = "6f1c1a54-8f7e-4d47-9d4c-3a4b8f2f4e11"

[network]
bind_address = "127.0.0.1:9000"
start_delay = "500ms"

[spectate]
enabled = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "arena", cfg.Server.Name)
	assert.Equal(t, "6f1c1a54-8f7e-4d47-9d4c-3a4b8f2f4e11", cfg.Server.MatchID)
	assert.Equal(t, "127.0.0.1:9000", cfg.Network.BindAddress)
	assert.Equal(t, 500*time.Millisecond, cfg.Network.StartDelay)
	assert.Equal(t, 20*time.Millisecond, cfg.Network.FixedStep, "default kept")
	assert.Equal(t, 50, cfg.Match.InputWindow)
	assert.True(t, cfg.Spectate.Enabled)
	assert.Equal(t, "127.0.0.1:7778", cfg.Spectate.BindAddress)
	assert.NotZero(t, cfg.Server.StartTime)
}

func TestLoadGeneratesMatchID(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[logging]\nlevel = \"debug\"\n"))
	require.NoError(t, err)
	assert.Len(t, cfg.Server.MatchID, 36)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, `
[server]
match_id = "nope"
[network]
fixed_step = "0s"
[match]
input_window = 0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match_id")
	assert.Contains(t, err.Error(), "fixed_step")
	assert.Contains(t, err.Error(), "input_window")

	_, err = Load(writeConfig(t, "[network\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestPathPrecedence(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, DefaultPath, Path(""))

	t.Setenv(EnvPath, "/etc/glovebox.toml")
	assert.Equal(t, "/etc/glovebox.toml", Path(""))
	assert.Equal(t, "local.toml", Path("local.toml"))
}
