package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ensureFiles(t *testing.T, rootDir string, files ...string) {
	for _, f := range files {
		p := rootify(f, rootDir)
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestEnsureRoot(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, EnsureRoot(tmpDir))
	require.NoError(t, WriteConfigFile(tmpDir, DefaultConfig()))

	ensureFiles(t, tmpDir, "config", "data", defaultConfigFilePath)
	raw := checkConfig(t, ConfigFile(tmpDir))
	verifier, ok := raw["verifier"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "1/3", verifier["trust-level"])
	assert.Equal(t, "336h0m0s", verifier["trusting-period"])
	instr, ok := raw["instrumentation"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, instr["prometheus"])
}

func TestWriteConfigFileKeepsExisting(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, EnsureRoot(tmpDir))

	path := ConfigFile(tmpDir)
	require.NoError(t, os.WriteFile(path, []byte("log-level = \"error\"\n"), 0644))
	require.NoError(t, WriteConfigFile(tmpDir, DefaultConfig()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log-level = \"error\"\n", string(data))
}

// checkConfig parses the rendered file as plain TOML to catch template
// syntax errors.
func checkConfig(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	var raw map[string]interface{}
	md, err := toml.DecodeFile(path, &raw)
	require.NoError(t, err)
	assert.Empty(t, md.Undecoded())

	for _, key := range []string{"db-backend", "db-dir", "log-level", "log-format"} {
		assert.Contains(t, raw, key)
	}
	return raw
}

func TestConfigRoundTripThroughViper(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, EnsureRoot(tmpDir))

	want := TestConfig()
	want.Verifier.TrustLevel = "2/3"
	want.Verifier.TrustingPeriod = 90 * time.Minute
	want.Instrumentation.Prometheus = true
	want.Instrumentation.Namespace = "lens"
	want.DBPath = filepath.Join(tmpDir, "store")
	require.NoError(t, want.WriteToTemplate(ConfigFile(tmpDir)))
	checkConfig(t, ConfigFile(tmpDir))

	v := viper.New()
	v.SetConfigFile(ConfigFile(tmpDir))
	require.NoError(t, v.ReadInConfig())
	v.Set("home", tmpDir)

	got := DefaultConfig()
	require.NoError(t, v.Unmarshal(got))
	require.NoError(t, got.ValidateBasic())

	assert.Equal(t, tmpDir, got.RootDir)
	assert.Equal(t, want.DBBackend, got.DBBackend)
	assert.Equal(t, want.DBDir(), got.DBDir())
	assert.Equal(t, want.LogLevel, got.LogLevel)
	assert.Equal(t, want.Verifier, got.Verifier)
	assert.Equal(t, want.Instrumentation, got.Instrumentation)
}
