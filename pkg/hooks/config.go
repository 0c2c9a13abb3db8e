// Package hooks runs user commands around snapshot export.
// Hooks are configured in .pairplot/hooks.yaml next to the dataset and run
// before the snapshot is written (pre-export) and after (post-export).
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HookPhase represents when a hook runs
type HookPhase string

const (
	// PreExport runs before the snapshot is written. Failure cancels export.
	PreExport HookPhase = "pre-export"
	// PostExport runs after the snapshot is written. Failure is reported but the file stays.
	PostExport HookPhase = "post-export"
)

// Hook is a single configured command.
type Hook struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"` // run with sh -c
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`           // values are expanded against the process environment
	OnError string            `yaml:"on_error,omitempty" json:"on_error,omitempty"` // "fail" or "continue"
}

// Config holds all hook configurations
type Config struct {
	Hooks HooksByPhase `yaml:"hooks" json:"hooks"`
}

// HooksByPhase organizes hooks by their execution phase
type HooksByPhase struct {
	PreExport  []Hook `yaml:"pre-export,omitempty" json:"pre-export,omitempty"`
	PostExport []Hook `yaml:"post-export,omitempty" json:"post-export,omitempty"`
}

// ExportContext describes the export a hook runs around. It reaches the
// hook as PAIRPLOT_* environment variables.
type ExportContext struct {
	ExportPath   string
	ExportFormat string // svg or png
	Dataset      string
	RecordCount  int
	Timestamp    time.Time
}

// ToEnv converts export context to environment variables
func (c ExportContext) ToEnv() []string {
	return []string{
		"PAIRPLOT_EXPORT_PATH=" + c.ExportPath,
		"PAIRPLOT_EXPORT_FORMAT=" + c.ExportFormat,
		"PAIRPLOT_DATASET=" + c.Dataset,
		fmt.Sprintf("PAIRPLOT_RECORD_COUNT=%d", c.RecordCount),
		"PAIRPLOT_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}

// DefaultTimeout is the default hook execution timeout
const DefaultTimeout = 30 * time.Second

// ConfigPath returns the hooks file for a dataset directory.
func ConfigPath(dir string) string {
	return filepath.Join(dir, ".pairplot", "hooks.yaml")
}

// Loader loads hook configuration from .pairplot/hooks.yaml.
type Loader struct {
	dir      string
	config   *Config
	warnings []string
}

// LoaderOption configures the loader
type LoaderOption func(*Loader)

// WithDir sets the directory holding .pairplot/ (default: current directory).
func WithDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.dir = dir
	}
}

// NewLoader creates a new hook loader with options
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.dir == "" {
		l.dir, _ = os.Getwd()
	}
	return l
}

// Load reads the hooks file. A missing file means no hooks.
func (l *Loader) Load() error {
	path := ConfigPath(l.dir)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.config = &Config{}
			return nil
		}
		return fmt.Errorf("reading hooks config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.Hooks.PreExport, l.warnings = normalizeHooks(cfg.Hooks.PreExport, PreExport, l.warnings)
	cfg.Hooks.PostExport, l.warnings = normalizeHooks(cfg.Hooks.PostExport, PostExport, l.warnings)
	l.config = &cfg
	return nil
}

// normalizeHooks applies defaults, drops empty commands, and accumulates warnings.
func normalizeHooks(hooks []Hook, phase HookPhase, warnings []string) ([]Hook, []string) {
	var out []Hook
	for i, hook := range hooks {
		if strings.TrimSpace(hook.Command) == "" {
			warnings = append(warnings, fmt.Sprintf("%s hook %d has empty command; skipping", phase, i+1))
			continue
		}
		if hook.Timeout <= 0 {
			hook.Timeout = DefaultTimeout
		}
		switch hook.OnError {
		case "fail", "continue":
		case "":
			if phase == PreExport {
				hook.OnError = "fail"
			} else {
				hook.OnError = "continue"
			}
		default:
			warnings = append(warnings, fmt.Sprintf("%s hook %d has unknown on_error %q; using fail", phase, i+1, hook.OnError))
			hook.OnError = "fail"
		}
		if hook.Name == "" {
			hook.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		out = append(out, hook)
	}
	return out, warnings
}

// Config returns the loaded configuration (or empty if not loaded)
func (l *Loader) Config() *Config {
	if l.config == nil {
		return &Config{}
	}
	return l.config
}

// HasHooks returns true if any hooks are configured
func (l *Loader) HasHooks() bool {
	if l.config == nil {
		return false
	}
	return len(l.config.Hooks.PreExport) > 0 || len(l.config.Hooks.PostExport) > 0
}

// GetHooks returns hooks for a specific phase
func (l *Loader) GetHooks(phase HookPhase) []Hook {
	if l.config == nil {
		return nil
	}
	switch phase {
	case PreExport:
		return l.config.Hooks.PreExport
	case PostExport:
		return l.config.Hooks.PostExport
	default:
		return nil
	}
}

// Warnings returns any warnings from loading
func (l *Loader) Warnings() []string {
	return l.warnings
}

// UnmarshalYAML accepts timeouts as durations ("5s") or bare seconds ("30").
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	// Mirrors Hook except for Timeout.
	type hookDTO struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout,omitempty"`
		Env     map[string]string `yaml:"env,omitempty"`
		OnError string            `yaml:"on_error,omitempty"`
	}

	var dto hookDTO
	if err := node.Decode(&dto); err != nil {
		return err
	}

	h.Name = dto.Name
	h.Command = dto.Command
	h.Env = dto.Env
	h.OnError = dto.OnError

	if dto.Timeout != "" {
		d, err := time.ParseDuration(dto.Timeout)
		if err != nil {
			var seconds float64
			if _, scanErr := fmt.Sscanf(dto.Timeout, "%f", &seconds); scanErr != nil {
				return fmt.Errorf("invalid timeout %q: %w", dto.Timeout, err)
			}
			d = time.Duration(seconds * float64(time.Second))
		}
		h.Timeout = d
	}
	return nil
}
