package collabnet

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/collabnet/centrality"
	"github.com/brunobiangulo/collabnet/ranking"
)

// Config holds all configuration for a collabnet run.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.collabnet/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. "home" (default) uses ~/.collabnet/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// Inputs. Both accept doublestar globs.
	Events  string `json:"events" yaml:"events"`
	Tenures string `json:"tenures" yaml:"tenures"` // optional: no editor filtering when empty

	// Outputs
	GEXFDir      string `json:"gexf_dir" yaml:"gexf_dir"` // skip GEXF export when empty
	CompressGEXF bool   `json:"compress_gexf" yaml:"compress_gexf"`
	Workbook     string `json:"workbook" yaml:"workbook"` // skip xlsx report when empty

	// Network building
	Window  int `json:"window" yaml:"window"`
	MinYear int `json:"min_year" yaml:"min_year"`
	MaxYear int `json:"max_year" yaml:"max_year"`

	// Centrality
	SecondOrder string `json:"second_order" yaml:"second_order"` // undirected or out
	Concurrency int    `json:"concurrency" yaml:"concurrency"`

	// Ranking
	GivenWindow    int              `json:"given_window" yaml:"given_window"` // 0: yearly counts
	TopK           int              `json:"top_k" yaml:"top_k"`
	StableOnly     bool             `json:"stable_only" yaml:"stable_only"`
	RankingWindows []ranking.Window `json:"ranking_windows,omitempty" yaml:"ranking_windows,omitempty"`
}

// DefaultConfig returns the configuration of the published analysis.
// Database is stored in ~/.collabnet/collabnet.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:      "collabnet",
		StorageDir:  "home",
		Window:      3,
		MinYear:     1997,
		MaxYear:     2011,
		SecondOrder: string(centrality.SecondOrderUndirected),
		Concurrency: runtime.NumCPU(),
		GivenWindow: 3,
		TopK:        ranking.DefaultTopK,
		StableOnly:  true,
	}
}

// LoadConfig reads a YAML (or JSON) file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from COLLABNET_* environment variables.
func (c *Config) ApplyEnv() error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"COLLABNET_DB_PATH", &c.DBPath},
		{"COLLABNET_EVENTS", &c.Events},
		{"COLLABNET_TENURES", &c.Tenures},
		{"COLLABNET_GEXF_DIR", &c.GEXFDir},
		{"COLLABNET_WORKBOOK", &c.Workbook},
		{"COLLABNET_SECOND_ORDER", &c.SecondOrder},
	}
	for _, s := range strs {
		if v := os.Getenv(s.name); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"COLLABNET_WINDOW", &c.Window},
		{"COLLABNET_MIN_YEAR", &c.MinYear},
		{"COLLABNET_MAX_YEAR", &c.MaxYear},
		{"COLLABNET_GIVEN_WINDOW", &c.GivenWindow},
		{"COLLABNET_TOP_K", &c.TopK},
		{"COLLABNET_CONCURRENCY", &c.Concurrency},
	}
	for _, n := range ints {
		v := os.Getenv(n.name)
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, n.name, v)
		}
		*n.dst = i
	}
	return nil
}

// Validate checks the numeric bounds and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Window < 1:
		return fmt.Errorf("%w: window must be at least 1, got %d", ErrInvalidConfig, c.Window)
	case c.MinYear > c.MaxYear:
		return fmt.Errorf("%w: min_year %d after max_year %d", ErrInvalidConfig, c.MinYear, c.MaxYear)
	case c.TopK < 1:
		return fmt.Errorf("%w: top_k must be at least 1, got %d", ErrInvalidConfig, c.TopK)
	case c.GivenWindow < 0:
		return fmt.Errorf("%w: given_window must not be negative, got %d", ErrInvalidConfig, c.GivenWindow)
	}
	if _, err := centrality.ParseSecondOrderMode(c.SecondOrder); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, w := range c.RankingWindows {
		if w.From != 0 && w.To != 0 && w.From > w.To {
			return fmt.Errorf("%w: ranking window %d-%d is empty", ErrInvalidConfig, w.From, w.To)
		}
	}
	return nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "collabnet"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db"
		}
		return filepath.Join(home, ".collabnet", name+".db")
	}
}

// ResolvedDBPath returns the database path a Pipeline opens.
func (c Config) ResolvedDBPath() string { return c.resolveDBPath() }
