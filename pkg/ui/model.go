// Package ui implements the pairplot terminal dashboard: a character-raster
// scatter plot with click and lasso selection, paired Instructions/Answers
// tables, search, record editing and deletion.
package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/pairplot/internal/datasource"
	"github.com/vanderheijden86/pairplot/pkg/config"
	"github.com/vanderheijden86/pairplot/pkg/debug"
	"github.com/vanderheijden86/pairplot/pkg/export"
	"github.com/vanderheijden86/pairplot/pkg/hooks"
	"github.com/vanderheijden86/pairplot/pkg/loader"
	"github.com/vanderheijden86/pairplot/pkg/metrics"
	"github.com/vanderheijden86/pairplot/pkg/model"
	"github.com/vanderheijden86/pairplot/pkg/session"
	"github.com/vanderheijden86/pairplot/pkg/store"
	"github.com/vanderheijden86/pairplot/pkg/surface"
	"github.com/vanderheijden86/pairplot/pkg/viewsync"
	"github.com/vanderheijden86/pairplot/pkg/watcher"
)

// clipboardWriteAll is swapped out in tests.
var clipboardWriteAll = clipboard.WriteAll

type focus int

const (
	focusPlot focus = iota
	focusInstructions
	focusOutputs
	focusCount
)

func (f focus) String() string {
	switch f {
	case focusInstructions:
		return "instructions"
	case focusOutputs:
		return "answers"
	default:
		return "plot"
	}
}

// FileChangedMsg is sent when the watched dataset file changes.
type FileChangedMsg struct{}

// viewChangedMsg is sent when the synchronizer reports a new view.
type viewChangedMsg struct{}

// opDoneMsg reports the outcome of a background operation.
type opDoneMsg struct {
	status string
	err    error
}

// reloadedMsg carries a freshly loaded dataset.
type reloadedMsg struct {
	records []model.Record
	err     error
}

// exportDoneMsg reports a written snapshot.
type exportDoneMsg struct {
	path  string
	hooks string // hook summary, empty without hooks
	err   error
}

// Options are the collaborators of the dashboard. Watcher and Session are
// optional.
type Options struct {
	Store       *store.Store
	Sync        *viewsync.Synchronizer
	Watcher     *watcher.Watcher
	Session     *session.Store
	Config      config.Config
	DatasetPath string
	// NoHooks skips .pairplot/hooks.yaml around snapshot export.
	NoHooks bool
}

// Model is the dashboard's bubbletea model.
type Model struct {
	ctx     context.Context
	store   *store.Store
	sync    *viewsync.Synchronizer
	watcher *watcher.Watcher
	session *session.Store
	cfg     config.Config
	dataset string
	noHooks bool

	theme Theme
	keys  KeyMap
	help  help.Model

	width, height int
	ready         bool

	plot    PlotPane
	spec    surface.Spec
	view    viewsync.View
	instr   RecordTable
	outputs RecordTable
	focus   focus

	searching bool
	search    textinput.Model

	editing bool
	edit    EditForm

	showPreview bool
	preview     *Preview

	statusMsg     string
	statusIsError bool
}

// NewModel returns a dashboard over an already synced Synchronizer.
func NewModel(ctx context.Context, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "search instruction, input or output"
	ti.Prompt = "/ "
	ti.CharLimit = 200
	ti.SetValue(opts.Store.SearchText())

	pageSize := opts.Config.Table.PageSize
	if pageSize <= 0 {
		pageSize = config.DefaultConfig().Table.PageSize
	}

	m := Model{
		ctx:     ctx,
		store:   opts.Store,
		sync:    opts.Sync,
		watcher: opts.Watcher,
		session: opts.Session,
		cfg:     opts.Config,
		dataset: opts.DatasetPath,
		noHooks: opts.NoHooks,
		theme:   DefaultTheme(lipgloss.DefaultRenderer()),
		keys:    DefaultKeyMap(),
		help:    help.New(),
		plot:    NewPlotPane(80, 20),
		instr:   NewInstructionTable(pageSize),
		outputs: NewOutputTable(pageSize),
		search:  ti,
		preview: &Preview{},
	}
	m.refresh()
	return m
}

// Init starts listening for view changes and file changes.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForView(m.sync.Subscribe())}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

// WatchFileCmd waits for the next change of the watched file.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

func waitForView(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return viewChangedMsg{}
	}
}

// refresh pulls the surface and the selection from the synchronizer.
func (m *Model) refresh() {
	spec, err := m.sync.Snapshot()
	if err != nil {
		spec = surface.Spec{}
	}
	m.spec = spec
	m.plot.SetSpec(spec)
	m.view = m.sync.Selection()

	if m.view.HasSelection() {
		m.instr.SetInstructions(m.view.Instructions)
		m.outputs.SetOutputs(m.view.Outputs)
		return
	}
	proj := m.sync.Projection()
	instructions := make([]model.InstructionView, 0, proj.Len())
	outputs := make([]model.OutputView, 0, proj.Len())
	for i := 0; i < proj.Len(); i++ {
		if v, err := proj.InstructionView(i); err == nil {
			instructions = append(instructions, v)
		}
		if v, err := proj.OutputView(i); err == nil {
			outputs = append(outputs, v)
		}
	}
	m.instr.SetInstructions(instructions)
	m.outputs.SetOutputs(outputs)
}

func (m *Model) setStatus(msg string) {
	m.statusMsg, m.statusIsError = msg, false
}

func (m *Model) setError(err error) {
	m.statusMsg, m.statusIsError = err.Error(), true
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// huh.Form needs every message type for its internal navigation, so the
	// edit form sees messages before the type switch.
	if m.editing {
		var cmd tea.Cmd
		m.edit, cmd = m.edit.Update(msg)
		switch {
		case m.edit.Aborted():
			m.editing = false
			m.setStatus("edit cancelled")
			return m, cmd
		case m.edit.Done():
			m.editing = false
			p := m.edit.Patch()
			if p.Empty() {
				m.setStatus("no changes")
				return m, cmd
			}
			return m, tea.Batch(cmd, m.editCmd(m.edit.Index(), p))
		}
		// Keys belong to the form; everything else also reaches the
		// dashboard so views and reloads keep flowing.
		if _, isKey := msg.(tea.KeyMsg); isKey {
			return m, cmd
		}
		next, more := m.update(msg)
		return next, tea.Batch(cmd, more)
	}
	return m.update(msg)
}

func (m Model) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case viewChangedMsg:
		m.refresh()
		if m.view.Err != nil {
			m.setError(m.view.Err)
		}
		return m, waitForView(m.sync.Subscribe())

	case opDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else if msg.status != "" {
			m.setStatus(msg.status)
		}
		m.refresh()
		return m, nil

	case FileChangedMsg:
		var cmds []tea.Cmd
		cmds = append(cmds, m.reloadCmd())
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}
		return m, tea.Batch(cmds...)

	case reloadedMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("reload %s: %w", m.dataset, msg.err))
			return m, nil
		}
		diff := datasource.DiffRecords(m.store.Records(), msg.records)
		m.store.Load(msg.records)
		if _, err := m.sync.Sync(m.ctx); err != nil {
			m.setError(err)
		} else {
			m.setStatus("reloaded: " + diff.Summary())
		}
		m.refresh()
		return m, nil

	case exportDoneMsg:
		if msg.hooks != "" {
			debug.Log("ui: %s", msg.hooks)
		}
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus("exported " + msg.path)
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, m.searchCmd(strings.TrimSpace(m.search.Value()))
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue(m.store.SearchText())
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	case key.Matches(msg, k.Focus):
		m.focus = (m.focus + 1) % focusCount
		return m, nil
	case key.Matches(msg, k.Search):
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink
	case key.Matches(msg, k.Tracing):
		return m.toggleTracing()
	case key.Matches(msg, k.Delete):
		return m.deleteFocused()
	case key.Matches(msg, k.Edit):
		return m.startEdit()
	case key.Matches(msg, k.Copy):
		return m.copyFocused()
	case key.Matches(msg, k.Export):
		return m, m.exportCmd()
	case key.Matches(msg, k.Preview):
		m.showPreview = !m.showPreview
		return m, nil
	case key.Matches(msg, k.NextPage):
		if t := m.focusedTable(); t != nil {
			t.NextPage()
		}
		return m, nil
	case key.Matches(msg, k.PrevPage):
		if t := m.focusedTable(); t != nil {
			t.PrevPage()
		}
		return m, nil
	}

	if m.focus != focusPlot {
		t := m.focusedTable()
		switch {
		case key.Matches(msg, k.RowUp):
			t.MoveCursor(-1)
		case key.Matches(msg, k.RowDown):
			t.MoveCursor(1)
		case key.Matches(msg, k.Clear):
			m.focus = focusPlot
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, k.Up):
		m.plot.Move(0, -1)
	case key.Matches(msg, k.Down):
		m.plot.Move(0, 1)
	case key.Matches(msg, k.Left):
		m.plot.Move(-1, 0)
	case key.Matches(msg, k.Right):
		m.plot.Move(1, 0)
	case key.Matches(msg, k.Lasso):
		if m.plot.Anchored() {
			m.plot.ClearAnchor()
		} else {
			m.plot.Anchor()
		}
	case key.Matches(msg, k.Click):
		if m.plot.Anchored() {
			ev := m.plot.SelectEvent()
			m.plot.ClearAnchor()
			return m, m.dispatchCmd(ev)
		}
		ev, ok := m.plot.ClickEvent()
		if !ok {
			m.setStatus("no point to click")
			return m, nil
		}
		return m, m.dispatchCmd(ev)
	case key.Matches(msg, k.Clear):
		if m.plot.Anchored() {
			m.plot.ClearAnchor()
			return m, nil
		}
		return m, m.dispatchCmd(surface.Event{Kind: surface.EventSelect})
	}
	return m, nil
}

func (m *Model) focusedTable() *RecordTable {
	switch m.focus {
	case focusInstructions:
		return &m.instr
	case focusOutputs:
		return &m.outputs
	}
	return nil
}

// focusedRecord returns the record a row or point action applies to: the
// cursor row of a focused table, otherwise the first selected point.
func (m Model) focusedRecord() (model.Record, bool) {
	index := -1
	if t := m.focusedTable(); t != nil {
		if row, ok := t.Focused(); ok {
			index = row.Index
		}
	} else if len(m.view.Instructions) > 0 {
		index = m.view.Instructions[0].Index
	} else if len(m.view.Outputs) > 0 {
		index = m.view.Outputs[0].Index
	}
	if index < 0 {
		return model.Record{}, false
	}
	return m.store.Lookup(index)
}

func (m Model) toggleTracing() (tea.Model, tea.Cmd) {
	enabled := !m.sync.Tracing()
	m.sync.SetTracing(enabled)
	saveSession(m.session, func(st *session.Settings) { st.Tracing = session.Bool(enabled) })
	if enabled {
		m.setStatus("tracing on")
	} else {
		m.setStatus("tracing off")
	}
	return m, nil
}

func (m Model) deleteFocused() (tea.Model, tea.Cmd) {
	if t := m.focusedTable(); t != nil {
		row, ok := t.Focused()
		if !ok {
			m.setStatus("delete disabled: no row")
			return m, nil
		}
		return m, m.opCmd(fmt.Sprintf("deleted record %d", row.Index), func() error {
			return m.sync.Delete(m.ctx, row.Index)
		})
	}
	if !m.view.HasSelection() {
		m.setStatus("delete disabled: nothing selected")
		return m, nil
	}
	return m, m.opCmd("deleted selection", func() error {
		return m.sync.DeleteSelected(m.ctx)
	})
}

func (m Model) startEdit() (tea.Model, tea.Cmd) {
	r, ok := m.focusedRecord()
	if !ok {
		m.setStatus("edit disabled: no record focused")
		return m, nil
	}
	m.edit = NewEditForm(r, m.width-4)
	m.editing = true
	return m, m.edit.Init()
}

func (m Model) copyFocused() (tea.Model, tea.Cmd) {
	r, ok := m.focusedRecord()
	if !ok {
		m.setStatus("copy disabled: no record focused")
		return m, nil
	}
	text := r.Instruction
	if strings.TrimSpace(r.Input) != "" {
		text += "\n\n" + r.Input
	}
	text += "\n\n" + r.Output
	if err := clipboardWriteAll(text); err != nil {
		m.setError(fmt.Errorf("clipboard: %w", err))
		return m, nil
	}
	m.setStatus(fmt.Sprintf("copied record %d", r.Index))
	return m, nil
}

// saveSession updates the stored settings in place. Failures only cost the
// remembered state, so they are logged.
func saveSession(st *session.Store, mutate func(*session.Settings)) {
	if st == nil {
		return
	}
	settings, err := st.Load()
	if err != nil {
		debug.Log("ui: loading session: %v", err)
		return
	}
	mutate(&settings)
	if err := st.Save(settings); err != nil {
		debug.Log("ui: saving session: %v", err)
	}
}

func (m Model) opCmd(status string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return opDoneMsg{err: err}
		}
		return opDoneMsg{status: status}
	}
}

func (m Model) dispatchCmd(ev surface.Event) tea.Cmd {
	return m.opCmd("", func() error { return m.sync.Dispatch(m.ctx, ev) })
}

func (m Model) editCmd(index int, p model.Patch) tea.Cmd {
	return m.opCmd(fmt.Sprintf("edited record %d", index), func() error {
		return m.sync.Edit(m.ctx, index, p)
	})
}

func (m Model) searchCmd(text string) tea.Cmd {
	st := m.session
	status := fmt.Sprintf("search %q", text)
	if text == "" {
		status = "search cleared"
	}
	return m.opCmd(status, func() error {
		if err := m.sync.Search(m.ctx, text); err != nil {
			return err
		}
		saveSession(st, func(s *session.Settings) { s.LastSearch = text })
		return nil
	})
}

func (m Model) reloadCmd() tea.Cmd {
	path := m.dataset
	return func() tea.Msg {
		defer metrics.Timer(metrics.DatasetLoad)()
		records, err := datasource.LoadRecords(path, loader.ParseOptions{WarningHandler: func(w string) {
			debug.Log("ui: reload: %s", w)
		}})
		return reloadedMsg{records: records, err: err}
	}
}

func (m Model) exportCmd() tea.Cmd {
	ctx := m.ctx
	spec := m.spec.Clone()
	path := m.cfg.ExportPath("pairplot-" + time.Now().Format("20060102-150405"))
	ectx := hooks.ExportContext{
		ExportPath:   path,
		ExportFormat: export.FormatOf(path),
		Dataset:      m.dataset,
		RecordCount:  len(m.store.Active()),
		Timestamp:    time.Now(),
	}
	dir := filepath.Dir(m.dataset)
	noHooks := m.noHooks
	return func() tea.Msg {
		exec, err := hooks.RunHooks(dir, ectx, noHooks)
		if err != nil {
			return exportDoneMsg{path: path, err: err}
		}
		err = exec.Around(ctx, func() error {
			return export.SaveSnapshot(export.SnapshotOptions{Path: path, Spec: spec})
		})
		msg := exportDoneMsg{path: path, err: err}
		if exec != nil {
			msg.hooks = exec.Summary()
		}
		return msg
	}
}

// tableHeight is the rendered height of one table including its border.
func (m Model) tableHeight() int {
	// title, header, rows, pager, border
	return 1 + 1 + m.instr.pager.PerPage + 1 + 2
}

func (m *Model) layout() {
	if m.width == 0 {
		return
	}
	helpLines := 1
	if m.help.ShowAll {
		helpLines = 5
	}
	// header, status, help, plot border
	chrome := 1 + 1 + helpLines + 2
	plotH := max(m.height-chrome-m.tableHeight(), 3)
	m.plot.SetSize(m.width-2, plotH)

	half := m.width / 2
	m.instr.SetWidth(half - 2)
	m.outputs.SetWidth(m.width - half - 2)
	m.help.Width = m.width
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	defer metrics.Timer(metrics.UIRender)()

	if m.editing {
		return m.theme.Focused.Width(m.width - 2).Render(m.edit.View())
	}

	var sections []string
	sections = append(sections, m.headerView())

	plot := m.theme.PaneStyle(m.focus == focusPlot).Render(m.plot.View(m.theme))
	sections = append(sections, plot)

	if m.showPreview {
		if r, ok := m.focusedRecord(); ok {
			sections = append(sections, m.theme.Pane.Width(m.width-2).Render(m.preview.Render(r, m.width-4)))
		} else {
			sections = append(sections, m.theme.Muted.Render("nothing to preview"))
		}
	} else {
		left := m.theme.PaneStyle(m.focus == focusInstructions).Render(m.instr.View(m.theme, m.focus == focusInstructions))
		right := m.theme.PaneStyle(m.focus == focusOutputs).Render(m.outputs.View(m.theme, m.focus == focusOutputs))
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	}

	sections = append(sections, m.statusView(), m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) headerView() string {
	title := m.cfg.Plot.Title
	if title == "" {
		title = surface.DefaultLayout().Title
	}
	tracing := "tracing off"
	if m.sync.Tracing() {
		tracing = "tracing on"
	}
	parts := []string{title, fmt.Sprintf("%d records", m.store.Len()), tracing, "focus: " + m.focus.String()}
	if m.store.IsSearching() {
		parts = append(parts, fmt.Sprintf("search %q: %d", m.store.SearchText(), len(m.store.SearchResults())))
	}
	return m.theme.Header.Render(truncate(strings.Join(parts, " · "), max(m.width-2, 1)))
}

func (m Model) statusView() string {
	switch {
	case m.searching:
		return m.search.View()
	case m.view.Loading != "":
		return m.theme.Status.Render(m.view.Loading + "...")
	case m.statusIsError:
		return m.theme.ErrorMsg.Render(truncate(m.statusMsg, m.width))
	case m.statusMsg != "":
		return m.theme.Status.Render(truncate(m.statusMsg, m.width))
	}
	var parts []string
	if m.view.HasSelection() {
		parts = append(parts, fmt.Sprintf("%d instructions, %d answers selected",
			len(m.view.InstructionIdx), len(m.view.OutputIdx)))
	}
	if m.focus == focusPlot {
		if text, ok := m.plot.HoverText(); ok {
			parts = append(parts, strings.ReplaceAll(text, "\n", " │ "))
		}
	}
	if len(parts) == 0 {
		return m.theme.Status.Render(" ")
	}
	return m.theme.Status.Render(truncate(strings.Join(parts, "  ·  "), m.width))
}
