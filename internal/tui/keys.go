package tui

import (
	"todo-notes/internal/richtext"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds the bindings of every view. The list bindings apply while
// browsing, the form bindings while editing a todo.
type KeyMap struct {
	// List and detail.
	Open     key.Binding
	Back     key.Binding
	New      key.Binding
	Edit     key.Binding
	Delete   key.Binding
	Search   key.Binding
	PrevPage key.Binding
	NextPage key.Binding
	Refresh  key.Binding
	Quit     key.Binding

	// Delete confirmation.
	Confirm key.Binding
	Cancel  key.Binding

	// Form.
	Save        key.Binding
	SwitchField key.Binding
	Bold        key.Binding
	Italic      key.Binding
	Underline   key.Binding
	BulletList  key.Binding
	NumberList  key.Binding
	AlignLeft   key.Binding
	AlignCenter key.Binding
	AlignRight  key.Binding
}

var DefaultKeyMap = KeyMap{
	Open: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	New: key.NewBinding(
		key.WithKeys("n", "a"),
		key.WithHelp("n", "new"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "x"),
		key.WithHelp("d", "delete"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("[", "left", "h"),
		key.WithHelp("[/←", "prev page"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("]", "right", "l"),
		key.WithHelp("]/→", "next page"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),

	Confirm: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "delete"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "N", "esc"),
		key.WithHelp("n", "keep"),
	),

	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("C-s", "save"),
	),
	SwitchField: key.NewBinding(
		key.WithKeys("tab", "shift+tab"),
		key.WithHelp("tab", "switch field"),
	),
	Bold: key.NewBinding(
		key.WithKeys("ctrl+b"),
		key.WithHelp("C-b", "bold"),
	),
	Italic: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("C-t", "italic"),
	),
	Underline: key.NewBinding(
		key.WithKeys("ctrl+u"),
		key.WithHelp("C-u", "underline"),
	),
	BulletList: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("C-l", "bullets"),
	),
	NumberList: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("C-o", "numbers"),
	),
	AlignLeft: key.NewBinding(
		key.WithKeys("alt+l"),
		key.WithHelp("M-l", "left"),
	),
	AlignCenter: key.NewBinding(
		key.WithKeys("alt+c"),
		key.WithHelp("M-c", "center"),
	),
	AlignRight: key.NewBinding(
		key.WithKeys("alt+r"),
		key.WithHelp("M-r", "right"),
	),
}

type formatBinding struct {
	binding key.Binding
	command richtext.Command
}

// formatBindings maps form bindings onto editor commands.
func (k KeyMap) formatBindings() []formatBinding {
	return []formatBinding{
		{k.Bold, richtext.CmdBold},
		{k.Italic, richtext.CmdItalic},
		{k.Underline, richtext.CmdUnderline},
		{k.BulletList, richtext.CmdUnorderedList},
		{k.NumberList, richtext.CmdOrderedList},
		{k.AlignLeft, richtext.CmdJustifyLeft},
		{k.AlignCenter, richtext.CmdJustifyCenter},
		{k.AlignRight, richtext.CmdJustifyRight},
	}
}
