package viz

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	FasterRender key.Binding
	SlowerRender key.Binding
	LessPacing   key.Binding
	MorePacing   key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.FasterRender, k.SlowerRender, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.FasterRender, k.SlowerRender},
		{k.LessPacing, k.MorePacing},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	FasterRender: key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "render faster")),
	SlowerRender: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "render slower")),
	LessPacing:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "less sim pacing")),
	MorePacing:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "more sim pacing")),
	Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}
