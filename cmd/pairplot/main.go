package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/pairplot/internal/datasource"
	"github.com/vanderheijden86/pairplot/pkg/config"
	"github.com/vanderheijden86/pairplot/pkg/debug"
	"github.com/vanderheijden86/pairplot/pkg/export"
	"github.com/vanderheijden86/pairplot/pkg/hooks"
	"github.com/vanderheijden86/pairplot/pkg/loader"
	"github.com/vanderheijden86/pairplot/pkg/metrics"
	"github.com/vanderheijden86/pairplot/pkg/model"
	"github.com/vanderheijden86/pairplot/pkg/projection"
	"github.com/vanderheijden86/pairplot/pkg/session"
	"github.com/vanderheijden86/pairplot/pkg/store"
	"github.com/vanderheijden86/pairplot/pkg/surface"
	"github.com/vanderheijden86/pairplot/pkg/ui"
	"github.com/vanderheijden86/pairplot/pkg/version"
	"github.com/vanderheijden86/pairplot/pkg/viewsync"
	"github.com/vanderheijden86/pairplot/pkg/watcher"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	datasetFlag := flag.String("dataset", "", "Dataset file, directory or registered name (default: config dataset, then working directory)")
	configFlag := flag.String("config", "", "Config file (default: XDG config path)")
	exportFlag := flag.String("export", "", "Write a plot snapshot (.svg or .png) and exit")
	saveFlag := flag.String("save-data", "", "Write the active records (.json, .jsonl or .db) and exit")
	searchFlag := flag.String("search", "", "Start with a search applied")
	noTracing := flag.Bool("no-tracing", false, "Do not draw lines between paired points")
	metricsFlag := flag.Bool("metrics", false, "Print timing metrics as JSON after a headless run")
	noHooks := flag.Bool("no-hooks", false, "Skip export hooks from .pairplot/hooks.yaml")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: pairplot [options]")
		fmt.Println("\nExplore instruction/output embedding pairs on a shared scatter plot.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Println(version.String())
		os.Exit(0)
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cfg, setupOptions{
		Dataset:   cfg.ResolveDataset(*datasetFlag),
		Search:    *searchFlag,
		NoTracing: *noTracing,
		Session:   cfg.Session.Enabled,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	headless := *exportFlag != "" || *saveFlag != "" || !term.IsTerminal(int(os.Stdout.Fd()))
	if headless {
		err := runHeadless(ctx, os.Stdout, a, headlessOptions{
			Export:  *exportFlag,
			Save:    *saveFlag,
			Metrics: *metricsFlag,
			NoHooks: *noHooks,
			Config:  cfg,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runTUI(ctx, a, cfg, *noHooks); err != nil {
		fmt.Fprintf(os.Stderr, "Error running pairplot: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

type setupOptions struct {
	Dataset   string
	Search    string
	NoTracing bool
	Session   bool
	// SessionPath overrides config.SessionPath.
	SessionPath string
}

// app is everything a run needs once the dataset is loaded.
type app struct {
	datasetPath string
	store       *store.Store
	sync        *viewsync.Synchronizer
	session     *session.Store
}

func (a *app) Close() {
	if err := a.sync.Close(); err != nil {
		debug.Log("main: closing surface: %v", err)
	}
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			debug.Log("main: closing session: %v", err)
		}
	}
}

// setup loads the dataset, restores the session and mounts the surface.
// Without a dataset argument the session's last dataset is reopened, and
// without -search the search last used on that dataset is reapplied.
func setup(ctx context.Context, cfg config.Config, opts setupOptions) (*app, error) {
	var sess *session.Store
	if opts.Session {
		sess = openSession(opts.SessionPath)
	}
	var saved session.Settings
	if sess != nil {
		st, err := sess.Load()
		if err != nil {
			debug.Log("main: loading session: %v", err)
		} else {
			saved = st
		}
	}

	dataset := opts.Dataset
	if dataset == "" && saved.LastDataset != "" {
		if _, err := os.Stat(saved.LastDataset); err == nil {
			dataset = saved.LastDataset
		} else {
			debug.Log("main: last dataset %s: %v", saved.LastDataset, err)
		}
	}
	records, path, err := loadDataset(dataset)
	if err != nil {
		if sess != nil {
			_ = sess.Close()
		}
		return nil, err
	}

	tracing := cfg.Plot.Tracing
	if saved.Tracing != nil {
		tracing = *saved.Tracing
	}
	if opts.NoTracing {
		tracing = false
	}
	absPath := path
	if abs, err := filepath.Abs(path); err == nil {
		absPath = abs
	}
	search := opts.Search
	if search == "" && saved.LastDataset == absPath {
		search = saved.LastSearch
	}
	if sess != nil && saved.LastDataset != absPath {
		saved.LastDataset = absPath
		saved.LastSearch = ""
		if err := sess.Save(saved); err != nil {
			debug.Log("main: saving session: %v", err)
		}
	}

	layout := surface.DefaultLayout()
	if cfg.Plot.Title != "" {
		layout.Title = cfg.Plot.Title
	}
	if cfg.Plot.Width > 0 {
		layout.Width = cfg.Plot.Width
	}
	if cfg.Plot.Height > 0 {
		layout.Height = cfg.Plot.Height
	}

	st := store.New(records, store.Options{CaseInsensitive: cfg.Search.CaseInsensitive})
	if search != "" {
		st.Search(search)
	}

	sy := viewsync.New(st, surface.NewAdapter(surface.NopBackend{}), viewsync.Options{
		ContainerID: cfg.Container,
		Tracing:     tracing,
		Layout:      layout,
		Projection: projection.Options{
			OffsetFactor:   cfg.Plot.OffsetFactor,
			OffsetFallback: cfg.Plot.OffsetFallback,
		},
	})
	if _, err := sy.Sync(ctx); err != nil {
		_ = sy.Close()
		if sess != nil {
			_ = sess.Close()
		}
		return nil, fmt.Errorf("building plot: %w", err)
	}
	return &app{datasetPath: path, store: st, sync: sy, session: sess}, nil
}

// openSession opens the session store, or returns nil when it is disabled
// or unavailable.
func openSession(path string) *session.Store {
	if path == "" {
		path = config.SessionPath()
	}
	if path == "" {
		return nil
	}
	sess, err := session.Open(path)
	if err != nil {
		// Another instance may hold the lock; run without a session.
		debug.Log("main: session unavailable: %v", err)
		return nil
	}
	return sess
}

// loadDataset loads a dataset file, or discovers one when arg is a directory
// or empty.
func loadDataset(arg string) ([]model.Record, string, error) {
	defer metrics.Timer(metrics.DatasetLoad)()

	opts := loader.ParseOptions{WarningHandler: func(w string) {
		debug.Log("main: %s", w)
	}}

	if arg != "" {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, "", fmt.Errorf("dataset %s: %w", arg, err)
		}
		if !info.IsDir() {
			records, err := datasource.LoadRecords(arg, opts)
			if err != nil {
				return nil, "", fmt.Errorf("loading %s: %w", arg, err)
			}
			return records, arg, nil
		}
	}

	dir, err := loader.GetDatasetDir(arg)
	if err != nil {
		return nil, "", err
	}
	records, src, err := datasource.LoadFromDir(dir, opts)
	if err != nil {
		return nil, "", fmt.Errorf("no dataset found in %s: %w", dir, err)
	}
	return records, src.Path, nil
}

type headlessOptions struct {
	Export  string
	Save    string
	Metrics bool
	NoHooks bool
	Config  config.Config
}

// runHeadless writes the requested files and a short summary to w.
func runHeadless(ctx context.Context, w io.Writer, a *app, opts headlessOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := a.store.Snapshot()
	fmt.Fprintf(w, "%s: %d records", a.datasetPath, len(snap.All))
	if snap.Searching {
		fmt.Fprintf(w, ", %d matching %q", len(snap.Subset), a.store.SearchText())
	}
	fmt.Fprintln(w)

	exportPath := opts.Export
	if exportPath == "" && opts.Save == "" {
		exportPath = opts.Config.ExportPath(snapshotName(a.datasetPath))
	}
	if exportPath != "" {
		spec, err := a.sync.Snapshot()
		if err != nil {
			return err
		}
		if filepath.Ext(exportPath) == "" {
			format := opts.Config.Export.Format
			if format == "" {
				format = "svg"
			}
			exportPath += "." + format
		}
		exec, err := hooks.RunHooks(filepath.Dir(a.datasetPath), hooks.ExportContext{
			ExportPath:   exportPath,
			ExportFormat: export.FormatOf(exportPath),
			Dataset:      a.datasetPath,
			RecordCount:  len(a.store.Active()),
			Timestamp:    time.Now(),
		}, opts.NoHooks)
		if err != nil {
			return err
		}
		err = exec.Around(ctx, func() error {
			return export.SaveSnapshot(export.SnapshotOptions{Path: exportPath, Spec: spec})
		})
		if exec != nil {
			fmt.Fprintln(w, exec.Summary())
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "snapshot: %s\n", exportPath)
	}

	if opts.Save != "" {
		if err := export.SaveDataset(opts.Save, a.store.Active()); err != nil {
			return err
		}
		fmt.Fprintf(w, "data: %s\n", opts.Save)
	}

	if opts.Metrics {
		return metrics.WriteJSON(w)
	}
	return nil
}

func snapshotName(datasetPath string) string {
	base := filepath.Base(datasetPath)
	base = base[:len(base)-len(filepath.Ext(base))]
	if base == "" || base == "." {
		base = "pairplot"
	}
	return base + "-" + time.Now().Format("20060102-150405")
}

func runTUI(ctx context.Context, a *app, cfg config.Config, noHooks bool) error {
	// Debug output would tear the alternate screen.
	if debug.Enabled() {
		if f, err := os.OpenFile(filepath.Join(os.TempDir(), "pairplot-debug.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			defer f.Close()
			debug.SetOutput(f)
		}
	}

	var w *watcher.Watcher
	if cfg.Watch {
		var err error
		w, err = watcher.NewWatcher(a.datasetPath)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			debug.Log("main: watching %s: %v", a.datasetPath, err)
			w = nil
		} else {
			defer w.Stop()
		}
	}

	m := ui.NewModel(ctx, ui.Options{
		Store:       a.store,
		Sync:        a.sync,
		Watcher:     w,
		Session:     a.session,
		Config:      cfg,
		DatasetPath: a.datasetPath,
		NoHooks:     noHooks,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
