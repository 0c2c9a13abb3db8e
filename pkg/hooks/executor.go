package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vanderheijden86/pairplot/pkg/debug"
)

// maxSummaryOutput bounds the stderr shown per hook in Summary.
const maxSummaryOutput = 200

// HookResult is the outcome of one hook run.
type HookResult struct {
	Hook     Hook
	Phase    HookPhase
	Success  bool
	Error    error
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Executor runs the hooks of one Config for one export.
type Executor struct {
	config  *Config
	context ExportContext
	results []HookResult
}

// NewExecutor creates an executor for cfg.
func NewExecutor(cfg *Config, ectx ExportContext) *Executor {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Executor{config: cfg, context: ectx}
}

// RunHooks loads the hooks configured in dir. It returns a nil executor when
// noHooks is set or nothing is configured.
func RunHooks(dir string, ectx ExportContext, noHooks bool) (*Executor, error) {
	if noHooks {
		return nil, nil
	}
	loader := NewLoader(WithDir(dir))
	if err := loader.Load(); err != nil {
		return nil, err
	}
	for _, w := range loader.Warnings() {
		debug.Log("hooks: %s", w)
	}
	if !loader.HasHooks() {
		return nil, nil
	}
	return NewExecutor(loader.Config(), ectx), nil
}

// RunPreExport runs pre-export hooks in order and stops at the first
// failing hook with on_error=fail.
func (e *Executor) RunPreExport(ctx context.Context) error {
	for _, h := range e.config.Hooks.PreExport {
		r := e.run(ctx, h, PreExport)
		if !r.Success && h.OnError == "fail" {
			return fmt.Errorf("pre-export hook %q failed: %w", h.Name, r.Error)
		}
	}
	return nil
}

// RunPostExport runs every post-export hook and reports the first failure
// of a hook with on_error=fail.
func (e *Executor) RunPostExport(ctx context.Context) error {
	var first error
	for _, h := range e.config.Hooks.PostExport {
		r := e.run(ctx, h, PostExport)
		if !r.Success && h.OnError == "fail" && first == nil {
			first = fmt.Errorf("post-export hook %q failed: %w", h.Name, r.Error)
		}
	}
	return first
}

// Around runs pre-export hooks, write, then post-export hooks. A nil
// executor just calls write.
func (e *Executor) Around(ctx context.Context, write func() error) error {
	if e == nil {
		return write()
	}
	if err := e.RunPreExport(ctx); err != nil {
		return err
	}
	if err := write(); err != nil {
		return err
	}
	return e.RunPostExport(ctx)
}

func (e *Executor) run(ctx context.Context, h Hook, phase HookPhase) HookResult {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", h.Command)
	cmd.Env = append(os.Environ(), e.context.ToEnv()...)
	for k, v := range h.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r := HookResult{
		Hook:     h,
		Phase:    phase,
		Success:  err == nil,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %v", timeout)
		}
		r.Error = err
	}
	debug.Log("hooks: %s %q success=%v in %v", phase, h.Name, r.Success, r.Duration)

	e.results = append(e.results, r)
	return r
}

// Results returns every hook run so far, in order.
func (e *Executor) Results() []HookResult {
	return e.results
}

// Summary describes the runs so far, with truncated stderr for failures.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	var ok, failed int
	var b strings.Builder
	for _, r := range e.results {
		if r.Success {
			ok++
			continue
		}
		failed++
		fmt.Fprintf(&b, "\n  %s %s: %v", r.Phase, r.Hook.Name, r.Error)
		if r.Stderr != "" {
			fmt.Fprintf(&b, "\n    stderr: %s", truncate(r.Stderr, maxSummaryOutput))
		}
	}
	return fmt.Sprintf("hooks: %d succeeded, %d failed", ok, failed) + b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
