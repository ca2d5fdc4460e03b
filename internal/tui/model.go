// Package tui is the terminal client: a paginated todo list with search, a
// detail view that renders the rich-text description, and create/edit
// forms with the same formatting commands as the browser editor.
package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"todo-notes/internal/models"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type view int

const (
	viewList view = iota
	viewDetail
	viewForm
	viewConfirm
	viewSearch
)

// todoItem adapts a todo to bubbles/list.Item.
type todoItem struct{ todo models.Todo }

func (i todoItem) Title() string       { return i.todo.Title }
func (i todoItem) Description() string { return i.todo.Date.Local().Format("2006-01-02 15:04") }
func (i todoItem) FilterValue() string { return i.todo.Title }

// itemDelegate renders one todo per line.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(todoItem)
	if !ok {
		return
	}

	prefix := "  "
	title := it.Title()
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
		title = titleStyle.Render(title)
	}
	fmt.Fprintf(w, "%s%s  %s", prefix, title, mutedStyle.Render(it.Description()))
}

type Model struct {
	api      TodoAPI
	keys     KeyMap
	timeout  time.Duration
	pageSize int

	view     view
	returnTo view

	list        list.Model
	page        int
	totalPages  int
	search      string
	searchInput textinput.Model

	current models.Todo
	form    form

	status    string
	statusErr bool
	loading   bool

	width  int
	height int
}

type Option func(*Model)

func WithKeyMap(k KeyMap) Option {
	return func(m *Model) { m.keys = k }
}

// WithRequestTimeout bounds every API call.
func WithRequestTimeout(d time.Duration) Option {
	return func(m *Model) { m.timeout = d }
}

func New(api TodoAPI, pageSize int, opts ...Option) Model {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	l := list.New(nil, itemDelegate{}, 76, 20)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowPagination(true)
	l.Styles.PaginationStyle = helpStyle
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	l.KeyMap.PrevPage = key.NewBinding(key.WithKeys("pgup"))
	l.KeyMap.NextPage = key.NewBinding(key.WithKeys("pgdown"))

	si := textinput.New()
	si.Prompt = "/ "
	si.Placeholder = "Search titles..."
	si.CharLimit = 200

	m := Model{
		api:         api,
		keys:        DefaultKeyMap,
		timeout:     15 * time.Second,
		pageSize:    pageSize,
		list:        l,
		page:        1,
		totalPages:  1,
		searchInput: si,
		loading:     true,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) query(page int) models.ListQuery {
	return models.ListQuery{Page: page, Limit: m.pageSize, Search: m.search}
}

func (m Model) Init() tea.Cmd {
	return listCmd(m.api, m.query(1), m.timeout)
}

func (m *Model) loadPage(page int) tea.Cmd {
	m.loading = true
	return listCmd(m.api, m.query(page), m.timeout)
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(s string) {
	m.status, m.statusErr = s, true
}

func (m Model) selected() (models.Todo, bool) {
	it, ok := m.list.SelectedItem().(todoItem)
	if !ok {
		return models.Todo{}, false
	}
	return it.todo, true
}

func (m *Model) openForm(todo *models.Todo, returnTo view) tea.Cmd {
	m.form = newForm(todo)
	m.form.setWidth(m.contentWidth())
	m.returnTo = returnTo
	m.view = viewForm
	return textinput.Blink
}

func (m Model) contentWidth() int {
	if m.width > 4 {
		return m.width - 4
	}
	return 76
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := msg.Height - 8
		if h < 3 {
			h = 3
		}
		m.list.SetSize(m.contentWidth(), h)
		if m.view == viewForm {
			m.form.setWidth(m.contentWidth())
		}
		return m, nil

	case pageLoadedMsg:
		return m.pageLoaded(msg)

	case todoLoadedMsg:
		m.loading = false
		m.current = msg.todo
		m.view = viewDetail
		return m, nil

	case todoSavedMsg:
		m.current = msg.todo
		m.view = viewList
		if msg.created {
			m.setStatus("Todo created")
			return m, m.loadPage(1)
		}
		m.setStatus("Todo updated")
		return m, m.loadPage(m.page)

	case todoDeletedMsg:
		m.view = viewList
		m.setStatus("Todo deleted")
		return m, m.loadPage(m.page)

	case errMsg:
		m.loading = false
		m.setError(describeError(msg.err))
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		// A status line is shown once; the next key press clears it.
		m.status, m.statusErr = "", false

		switch m.view {
		case viewDetail:
			return m.updateDetail(msg)
		case viewForm:
			return m.updateForm(msg)
		case viewConfirm:
			return m.updateConfirm(msg)
		case viewSearch:
			return m.updateSearch(msg)
		default:
			return m.updateList(msg)
		}
	}

	return m.forward(msg)
}

// forward hands non-key messages such as cursor blinks to the focused widget.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case viewForm:
		m.form, cmd = m.form.update(msg, m.keys)
	case viewSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
	case viewList:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m Model) pageLoaded(msg pageLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	p := msg.page

	// The last page emptied under us, e.g. after a delete.
	if len(p.Todos) == 0 && msg.query.Page > 1 && p.TotalPages < msg.query.Page {
		return m, m.loadPage(p.TotalPages)
	}

	m.page = p.CurrentPage
	if m.page < 1 {
		m.page = msg.query.Page
	}
	m.totalPages = p.TotalPages
	if m.totalPages < 1 {
		m.totalPages = 1
	}

	items := make([]list.Item, 0, len(p.Todos))
	for _, t := range p.Todos {
		items = append(items, todoItem{todo: t})
	}
	m.list.SetItems(items)
	m.list.ResetSelected()
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Open):
		if t, ok := m.selected(); ok {
			m.loading = true
			return m, getCmd(m.api, t.ID, m.timeout)
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		return m, m.openForm(nil, viewList)

	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.selected(); ok {
			return m, m.openForm(&t, viewList)
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selected(); ok {
			m.current = t
			m.returnTo = viewList
			m.view = viewConfirm
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.view = viewSearch
		m.searchInput.SetValue(m.search)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.PrevPage):
		if m.page > 1 {
			return m, m.loadPage(m.page - 1)
		}
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		if m.page < m.totalPages {
			return m, m.loadPage(m.page + 1)
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadPage(m.page)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.view = viewList
	case key.Matches(msg, m.keys.Edit):
		t := m.current
		return m, m.openForm(&t, viewDetail)
	case key.Matches(msg, m.keys.Delete):
		m.returnTo = viewDetail
		m.view = viewConfirm
	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, getCmd(m.api, m.current.ID, m.timeout)
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.view = viewList
		m.loading = true
		return m, deleteCmd(m.api, m.current.ID, m.timeout)
	case key.Matches(msg, m.keys.Cancel):
		m.view = m.returnTo
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.search = strings.TrimSpace(m.searchInput.Value())
		m.searchInput.Blur()
		m.view = viewList
		return m, m.loadPage(1)
	case tea.KeyEsc:
		m.searchInput.Blur()
		m.view = viewList
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.view = m.returnTo
		return m, nil

	case key.Matches(msg, m.keys.Save):
		if strings.TrimSpace(m.form.title.Value()) == "" {
			m.form.err = "Title cannot be empty"
			return m, nil
		}
		m.form.err = ""
		m.loading = true
		if m.form.editing() {
			return m, updateCmd(m.api, m.form.id, m.form.patch(), m.timeout)
		}
		return m, createCmd(m.api, m.form.input(), m.timeout)
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg, m.keys)
	return m, cmd
}

func (m Model) View() string {
	var body string
	switch m.view {
	case viewDetail:
		body = m.detailView()
	case viewForm:
		body = m.form.view(m.keys, m.contentWidth())
	case viewConfirm:
		body = m.confirmView()
	default:
		body = m.listView()
	}

	if m.status != "" {
		style := successStyle
		if m.statusErr {
			style = errorStyle
		}
		body += "\n" + style.Render(m.status)
	}
	return panelStyle.Render(body)
}

func (m Model) listView() string {
	var sb strings.Builder

	header := fmt.Sprintf("%s   %s",
		titleStyle.Render("Todos"),
		accentStyle.Render(fmt.Sprintf("page %d/%d", m.page, m.totalPages)),
	)
	if m.search != "" {
		header += "   " + mutedStyle.Render(fmt.Sprintf("search: %q", m.search))
	}
	if m.loading {
		header += "   " + mutedStyle.Render("loading...")
	}
	sb.WriteString(header + "\n\n")

	if len(m.list.Items()) == 0 && !m.loading {
		sb.WriteString(mutedStyle.Render("No todos found") + "\n")
	} else {
		sb.WriteString(m.list.View() + "\n")
	}

	if m.view == viewSearch {
		sb.WriteString("\n" + m.searchInput.View() + "\n")
		sb.WriteString(helpStyle.Render("enter search • esc cancel"))
		return sb.String()
	}

	sb.WriteString("\n" + helpStyle.Render(helpLine(
		m.keys.Open, m.keys.New, m.keys.Edit, m.keys.Delete, m.keys.Search,
		m.keys.PrevPage, m.keys.NextPage, m.keys.Refresh, m.keys.Quit,
	)))
	return sb.String()
}

func (m Model) detailView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.current.Title) + "\n")
	sb.WriteString(mutedStyle.Render(m.current.Date.Local().Format("Mon, 02 Jan 2006 15:04")) + "\n\n")
	sb.WriteString(renderDescription(m.current.Description, m.contentWidth()) + "\n\n")
	sb.WriteString(helpStyle.Render(helpLine(m.keys.Back, m.keys.Edit, m.keys.Delete, m.keys.Refresh, m.keys.Quit)))
	return sb.String()
}

func (m Model) confirmView() string {
	return fmt.Sprintf("Delete %s? This cannot be undone.\n\n%s",
		titleStyle.Render(fmt.Sprintf("%q", m.current.Title)),
		helpStyle.Render(helpLine(m.keys.Confirm, m.keys.Cancel)),
	)
}
