package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit       key.Binding
	NewMap     key.Binding
	AddChild   key.Binding
	Delete     key.Binding
	Edit       key.Binding
	PanUp      key.Binding
	PanDown    key.Binding
	PanLeft    key.Binding
	PanRight   key.Binding
	NudgeUp    key.Binding
	NudgeDown  key.Binding
	NudgeLeft  key.Binding
	NudgeRight key.Binding
	ZoomIn     key.Binding
	ZoomOut    key.Binding
	ResetView  key.Binding
	Layout     key.Binding
	Expand     key.Binding
	Organize   key.Binding
	Summary    key.Binding
	Missing    key.Binding
	Dismiss    key.Binding
	APIKey     key.Binding
	Export     key.Binding
	ResetMap   key.Binding
	Help       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		NewMap:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new map")),
		AddChild:   key.NewBinding(key.WithKeys("a", "tab"), key.WithHelp("a", "add child")),
		Delete:     key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Edit:       key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit title")),
		PanUp:      key.NewBinding(key.WithKeys("up"), key.WithHelp("↑↓←→", "pan")),
		PanDown:    key.NewBinding(key.WithKeys("down")),
		PanLeft:    key.NewBinding(key.WithKeys("left")),
		PanRight:   key.NewBinding(key.WithKeys("right")),
		NudgeUp:    key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("shift+↑↓←→", "move node")),
		NudgeDown:  key.NewBinding(key.WithKeys("shift+down", "J")),
		NudgeLeft:  key.NewBinding(key.WithKeys("shift+left", "H")),
		NudgeRight: key.NewBinding(key.WithKeys("shift+right", "L")),
		ZoomIn:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "zoom")),
		ZoomOut:    key.NewBinding(key.WithKeys("-")),
		ResetView:  key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset view")),
		Layout:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "auto layout")),
		Expand:     key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "expand")),
		Organize:   key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "organize")),
		Summary:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "summary")),
		Missing:    key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "missing")),
		Dismiss:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss")),
		APIKey:     key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "api key")),
		Export:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "export")),
		ResetMap:   key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "clear map")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.AddChild, k.Edit, k.Delete, k.Expand, k.Summary, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NewMap, k.AddChild, k.Edit, k.Delete, k.Layout, k.ResetMap},
		{k.PanUp, k.NudgeUp, k.ZoomIn, k.ResetView},
		{k.Expand, k.Organize, k.Summary, k.Missing, k.Dismiss},
		{k.APIKey, k.Export, k.Help, k.Quit},
	}
}
