// Package config handles loading and saving pairplot configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/pairplot/config.yaml
//   - Data:    ~/.local/share/pairplot/ (exports)
//   - State:   ~/.local/state/pairplot/ (session settings)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const appName = "pairplot"

// Dataset is a named dataset that can be opened with -dataset <name>.
type Dataset struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// PlotConfig controls how the surface is built.
type PlotConfig struct {
	Tracing        bool    `yaml:"tracing"`
	OffsetFactor   float64 `yaml:"offset_factor,omitempty"`   // instruction y offset = factor * max(output_y)
	OffsetFallback float64 `yaml:"offset_fallback,omitempty"` // used when max(output_y) is 0 or undefined
	Title          string  `yaml:"title,omitempty"`
	Width          int     `yaml:"width,omitempty"`
	Height         int     `yaml:"height,omitempty"`
}

// SearchConfig controls text search.
type SearchConfig struct {
	CaseInsensitive bool `yaml:"case_insensitive"`
}

// TableConfig controls the paired record tables.
type TableConfig struct {
	PageSize int `yaml:"page_size,omitempty"`
}

// ExportConfig controls snapshot export.
type ExportConfig struct {
	Dir    string `yaml:"dir,omitempty"`
	Format string `yaml:"format,omitempty"` // svg or png
}

// SessionConfig controls persistence of UI settings between runs.
type SessionConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the top-level configuration for pairplot.
type Config struct {
	Dataset   string        `yaml:"dataset,omitempty"`
	Container string        `yaml:"container,omitempty"`
	Watch     bool          `yaml:"watch"`
	Datasets  []Dataset     `yaml:"datasets,omitempty"`
	Plot      PlotConfig    `yaml:"plot"`
	Search    SearchConfig  `yaml:"search"`
	Table     TableConfig   `yaml:"table"`
	Export    ExportConfig  `yaml:"export"`
	Session   SessionConfig `yaml:"session"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Container: "chart1",
		Watch:     true,
		Plot: PlotConfig{
			Tracing:        true,
			OffsetFactor:   4,
			OffsetFallback: 300,
			Width:          960,
			Height:         720,
		},
		Table:   TableConfig{PageSize: 6},
		Export:  ExportConfig{Format: "svg"},
		Session: SessionConfig{Enabled: true},
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch strings.ToLower(c.Export.Format) {
	case "", "svg", "png":
	default:
		return fmt.Errorf("export.format must be svg or png, got %q", c.Export.Format)
	}
	if c.Table.PageSize < 0 {
		return fmt.Errorf("table.page_size must not be negative, got %d", c.Table.PageSize)
	}
	if c.Plot.Width < 0 || c.Plot.Height < 0 {
		return fmt.Errorf("plot size must not be negative, got %dx%d", c.Plot.Width, c.Plot.Height)
	}
	for i, d := range c.Datasets {
		if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Path) == "" {
			return fmt.Errorf("datasets[%d] needs both name and path", i)
		}
	}
	return nil
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...)
}

// ConfigDir returns the XDG config directory for pairplot.
func ConfigDir() string { return xdgDir("XDG_CONFIG_HOME", ".config") }

// DataDir returns the XDG data directory for pairplot.
func DataDir() string { return xdgDir("XDG_DATA_HOME", ".local", "share") }

// StateDir returns the XDG state directory for pairplot.
func StateDir() string { return xdgDir("XDG_STATE_HOME", ".local", "state") }

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. Keys absent from the file keep
// their defaults. Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Dataset = expandHome(cfg.Dataset)
	cfg.Export.Dir = expandHome(cfg.Export.Dir)
	for i := range cfg.Datasets {
		cfg.Datasets[i].Path = expandHome(cfg.Datasets[i].Path)
	}
	if cfg.Table.PageSize == 0 {
		cfg.Table.PageSize = DefaultConfig().Table.PageSize
	}
	if cfg.Container == "" {
		cfg.Container = DefaultConfig().Container
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// FindDataset returns the named dataset, or nil.
func (c Config) FindDataset(name string) *Dataset {
	for i := range c.Datasets {
		if strings.EqualFold(c.Datasets[i].Name, name) {
			return &c.Datasets[i]
		}
	}
	return nil
}

// ResolveDataset turns a -dataset argument into a path. Registered names win
// over paths; an empty argument falls back to the configured dataset.
func (c Config) ResolveDataset(arg string) string {
	if arg == "" {
		return c.Dataset
	}
	if d := c.FindDataset(arg); d != nil {
		return d.Path
	}
	return expandHome(arg)
}

// ExportPath returns where a snapshot named base is written: Export.Dir
// when set, otherwise the data directory.
func (c Config) ExportPath(base string) string {
	dir := c.Export.Dir
	if dir == "" {
		dir = filepath.Join(DataDir(), "exports")
	}
	format := strings.ToLower(c.Export.Format)
	if format == "" {
		format = "svg"
	}
	return filepath.Join(dir, base+"."+format)
}

// SessionPath returns the session database path.
func SessionPath() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "session.db")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
