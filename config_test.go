package collabnet

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/collabnet/ranking"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Window)
	assert.Equal(t, 1997, cfg.MinYear)
	assert.Equal(t, 2011, cfg.MaxYear)
	assert.Equal(t, 30, cfg.TopK)
	assert.True(t, cfg.StableOnly)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero window", func(c *Config) { c.Window = 0 }, "window"},
		{"inverted years", func(c *Config) { c.MinYear, c.MaxYear = 2005, 2000 }, "min_year"},
		{"zero top k", func(c *Config) { c.TopK = 0 }, "top_k"},
		{"negative given window", func(c *Config) { c.GivenWindow = -1 }, "given_window"},
		{"unknown mode", func(c *Config) { c.SecondOrder = "sideways" }, "sideways"},
		{"empty ranking window", func(c *Config) {
			c.RankingWindows = []ranking.Window{{From: 2005, To: 2000}}
		}, "ranking window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "collabnet.yaml")
	body := strings.Join([]string{
		"window: 2",
		"min_year: 2000",
		"second_order: out",
		"ranking_windows:",
		"  - from: 2000",
		"    to: 2004",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Window)
	assert.Equal(t, 2000, cfg.MinYear)
	assert.Equal(t, 2011, cfg.MaxYear, "unset fields keep defaults")
	assert.Equal(t, "out", cfg.SecondOrder)
	assert.Equal(t, []ranking.Window{{From: 2000, To: 2004}}, cfg.RankingWindows)

	// JSON is valid YAML.
	jsonPath := filepath.Join(dir, "collabnet.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"top_k": 10, "stable_only": false}`), 0644))
	cfg, err = LoadConfig(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.TopK)
	assert.False(t, cfg.StableOnly)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("window: [1"), 0644))
	_, err = LoadConfig(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("COLLABNET_DB_PATH", "/tmp/x.db")
	t.Setenv("COLLABNET_WINDOW", "5")
	t.Setenv("COLLABNET_SECOND_ORDER", "out")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, 5, cfg.Window)
	assert.Equal(t, "out", cfg.SecondOrder)

	t.Setenv("COLLABNET_TOP_K", "lots")
	assert.ErrorIs(t, cfg.ApplyEnv(), ErrInvalidConfig)
}

func TestResolveDBPath(t *testing.T) {
	cfg := Config{DBPath: "/data/run.db"}
	assert.Equal(t, "/data/run.db", cfg.resolveDBPath())

	cfg = Config{DBName: "acks", StorageDir: "local"}
	assert.Equal(t, "acks.db", cfg.resolveDBPath())

	cfg = Config{}
	assert.True(t, strings.HasSuffix(cfg.resolveDBPath(), filepath.Join(".collabnet", "collabnet.db")))
}
