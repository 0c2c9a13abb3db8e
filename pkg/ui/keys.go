package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the dashboard bindings.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Click    key.Binding
	Lasso    key.Binding
	Clear    key.Binding
	Search   key.Binding
	Tracing  key.Binding
	Delete   key.Binding
	Edit     key.Binding
	Copy     key.Binding
	Export   key.Binding
	Preview  key.Binding
	Focus    key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	RowUp    key.Binding
	RowDown  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Click:    key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "click/select")),
		Lasso:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "lasso")),
		Clear:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Tracing:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tracing")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
		Export:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export")),
		Preview:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview")),
		Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
		NextPage: key.NewBinding(key.WithKeys("n", "pgdown"), key.WithHelp("n", "next page")),
		PrevPage: key.NewBinding(key.WithKeys("b", "pgup"), key.WithHelp("b", "prev page")),
		RowUp:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "row up")),
		RowDown:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "row down")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Click, k.Lasso, k.Search, k.Tracing, k.Delete, k.Focus, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Click, k.Lasso, k.Clear, k.Tracing},
		{k.Search, k.Delete, k.Edit, k.Copy},
		{k.Export, k.Preview, k.Focus, k.NextPage, k.PrevPage},
		{k.Help, k.Quit},
	}
}
