package actors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigKeepsEnvironmentOutOfFile(t *testing.T) {
	dir := t.TempDir() + "/"
	t.Setenv("ZENTRY_SIGNALS_GITHUB_TOKEN", "ghp_only_in_env")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("loglevel: 2\n"), 0600))

	conf := viper.New()
	conf.Set("rootDir", dir)
	InitConfig(conf)

	settings := LoadSettings(conf)
	assert.Equal(t, "ghp_only_in_env", settings.GitHubToken)
	assert.Equal(t, 2, settings.LogLevel)

	written, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(written), "ghp_only_in_env")
	assert.Contains(t, string(written), "loglevel: 2")
	assert.Contains(t, string(written), "listenaddr")
}

func TestInitConfigCreatesFile(t *testing.T) {
	dir := t.TempDir() + "/nested/"
	conf := viper.New()
	conf.Set("rootDir", dir)
	InitConfig(conf)

	written, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(written), "historydepth: 10")
	assert.Equal(t, "memory", conf.GetString("store.backend"))
	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
