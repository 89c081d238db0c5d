package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshivanandham/exasol-pow-client/internal/config"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "client_config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadPopulatesTransportAndIdentity(t *testing.T) {
	path := writeTempConfig(t, `{
		"transport": {"address": "challenge.example.org", "port": 443},
		"identity": {"fullname": "Deepak Shivanandham", "country": "india"}
	}`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "challenge.example.org", cfg.Transport.Address)
	assert.Equal(t, uint16(443), cfg.Transport.Port)
	assert.Equal(t, "Deepak Shivanandham", cfg.Identity.FullName)
	assert.Equal(t, "india", cfg.Identity.Country)
	assert.Equal(t, 10, cfg.Transport.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Transport.RetryDelay)
}

func TestLoadRequiresAddress(t *testing.T) {
	path := writeTempConfig(t, `{"transport": {}}`)
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
