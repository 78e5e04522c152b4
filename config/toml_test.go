package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
)

func TestEnsureRoot(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, EnsureRoot(tmpDir))
	require.NoError(t, WriteDefaultConfigFileIfNone(tmpDir))

	for _, dir := range []string{defaultConfigDir, defaultDataDir} {
		info, err := os.Stat(filepath.Join(tmpDir, dir))
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}

	data, err := os.ReadFile(ConfigFilePath(tmpDir))
	require.NoError(t, err)
	require.Contains(t, string(data), "[thinblock]")
}

// TestConfigFileDecodes makes sure the rendered template is valid TOML and
// carries the values it was rendered from.
func TestConfigFileDecodes(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, EnsureRoot(tmpDir))

	cfg := DefaultConfig()
	cfg.ThinBlock.MaxBlockTxs = 1234
	cfg.RelayCache.Timeout = 3 * time.Minute
	cfg.Instrumentation.Namespace = "relay"
	require.NoError(t, WriteConfigFile(tmpDir, cfg))

	var decoded struct {
		LogLevel  string `toml:"log-level"`
		ThinBlock struct {
			MaxBlockTxs    uint32 `toml:"max-block-txs"`
			EventQueueSize int    `toml:"event-queue-size"`
		} `toml:"thinblock"`
		RelayCache struct {
			Size    int    `toml:"size"`
			Timeout string `toml:"timeout"`
		} `toml:"relay-cache"`
		Instrumentation struct {
			Namespace string `toml:"namespace"`
		} `toml:"instrumentation"`
	}
	_, err := toml.DecodeFile(ConfigFilePath(tmpDir), &decoded)
	require.NoError(t, err)

	require.Equal(t, cfg.LogLevel, decoded.LogLevel)
	require.EqualValues(t, 1234, decoded.ThinBlock.MaxBlockTxs)
	require.Equal(t, cfg.ThinBlock.EventQueueSize, decoded.ThinBlock.EventQueueSize)
	require.Equal(t, cfg.RelayCache.Size, decoded.RelayCache.Size)
	require.Equal(t, "3m0s", decoded.RelayCache.Timeout)
	require.Equal(t, "relay", decoded.Instrumentation.Namespace)
}
