package tui

import (
	"strings"

	"todo-notes/internal/models"
	"todo-notes/internal/richtext"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// form edits one todo. The textarea holds the description text; the
// formatting lives in doc and is re-attached to the text on every change.
type form struct {
	id          string // empty when creating
	title       textinput.Model
	description textarea.Model
	doc         richtext.Document
	onTitle     bool
	err         string
}

func newForm(todo *models.Todo) form {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Title..."
	ti.CharLimit = 200

	ta := textarea.New()
	ta.Placeholder = "Description..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(6)

	f := form{title: ti, description: ta, onTitle: true}

	if todo != nil {
		f.id = todo.ID
		f.title.SetValue(todo.Title)
		f.title.CursorEnd()

		doc, err := richtext.Parse(todo.Description)
		if err != nil {
			doc = richtext.FromPlainText(todo.Description)
		}
		f.doc = doc
		f.description.SetValue(doc.PlainText())
	}

	f.title.Focus()
	return f
}

func (f form) editing() bool { return f.id != "" }

func (f *form) setWidth(w int) {
	if w < 20 {
		w = 20
	}
	f.title.Width = w - 4
	f.description.SetWidth(w)
}

func (f *form) switchField() tea.Cmd {
	f.onTitle = !f.onTitle
	if f.onTitle {
		f.description.Blur()
		return f.title.Focus()
	}
	f.title.Blur()
	return f.description.Focus()
}

// syncDoc re-attaches formatting to the current textarea text.
func (f *form) syncDoc() {
	f.doc = f.doc.WithLines(strings.Split(f.description.Value(), "\n"))
}

// apply runs an editor command over the description line under the cursor.
func (f *form) apply(cmd richtext.Command) error {
	f.syncDoc()
	doc, err := f.doc.Apply(cmd, richtext.Line(f.doc, f.description.Line()))
	if err != nil {
		return err
	}
	f.doc = doc
	return nil
}

func (f *form) descriptionHTML() string {
	f.syncDoc()
	if strings.TrimSpace(f.doc.PlainText()) == "" {
		return ""
	}
	return f.doc.HTML()
}

func (f *form) input() models.TodoInput {
	return models.TodoInput{
		Title:       strings.TrimSpace(f.title.Value()),
		Description: f.descriptionHTML(),
	}
}

func (f *form) patch() models.TodoPatch {
	in := f.input()
	return models.TodoPatch{Title: &in.Title, Description: &in.Description}
}

// update handles a key while the form is open. Saving and cancelling are
// handled by the caller.
func (f form) update(msg tea.Msg, keys KeyMap) (form, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(k, keys.SwitchField) {
			cmd := f.switchField()
			return f, cmd
		}
		if !f.onTitle {
			for _, fb := range keys.formatBindings() {
				if key.Matches(k, fb.binding) {
					f.err = ""
					if err := f.apply(fb.command); err != nil {
						f.err = err.Error()
					}
					return f, nil
				}
			}
		}
	}

	var cmd tea.Cmd
	if f.onTitle {
		f.title, cmd = f.title.Update(msg)
	} else {
		f.description, cmd = f.description.Update(msg)
	}
	return f, cmd
}

func (f form) view(keys KeyMap, width int) string {
	heading := "New todo"
	if f.editing() {
		heading = "Edit todo"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(heading))
	if f.err != "" {
		sb.WriteString("  " + errorStyle.Render(f.err))
	}
	sb.WriteString("\n\n")
	sb.WriteString(labelStyle.Render("Title") + "\n")
	sb.WriteString(f.title.View() + "\n\n")
	sb.WriteString(labelStyle.Render("Description") + "\n")
	sb.WriteString(f.description.View() + "\n\n")

	f.syncDoc()
	if len(f.doc.Blocks) > 0 && strings.TrimSpace(f.doc.PlainText()) != "" {
		sb.WriteString(labelStyle.Render("Preview") + "\n")
		sb.WriteString(renderDocument(f.doc, width) + "\n\n")
	}

	sb.WriteString(helpStyle.Render(helpLine(
		keys.Save, keys.SwitchField, keys.Bold, keys.Italic, keys.Underline,
		keys.BulletList, keys.NumberList, keys.AlignLeft, keys.AlignCenter, keys.AlignRight, keys.Back,
	)))
	return sb.String()
}

func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
