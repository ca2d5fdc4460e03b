package tui

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"todo-notes/internal/client"
	"todo-notes/internal/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI keeps todos newest first, the order the server lists them in.
type fakeAPI struct {
	mu        sync.Mutex
	todos     []models.Todo
	nextID    int
	queries   []models.ListQuery
	lastInput models.TodoInput
	lastPatch models.TodoPatch
	failNext  error
}

func (f *fakeAPI) seed(titles ...string) {
	for _, title := range titles {
		_, _ = f.Create(context.Background(), models.TodoInput{Title: title})
	}
}

func (f *fakeAPI) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeAPI) List(_ context.Context, q models.ListQuery) (models.TodoPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if err := f.takeFailure(); err != nil {
		return models.TodoPage{}, err
	}

	var matched []models.Todo
	for _, t := range f.todos {
		if strings.Contains(strings.ToLower(t.Title), strings.ToLower(q.Search)) {
			matched = append(matched, t)
		}
	}

	total := (len(matched) + q.Limit - 1) / q.Limit
	if total < 1 {
		total = 1
	}
	start := q.Skip()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return models.TodoPage{
		Todos:       append([]models.Todo{}, matched[start:end]...),
		TotalPages:  total,
		CurrentPage: q.Page,
	}, nil
}

func (f *fakeAPI) Get(_ context.Context, id string) (models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.todos {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Todo{}, &client.APIError{Status: http.StatusNotFound, Code: "not_found", Message: "Todo not found"}
}

func (f *fakeAPI) Create(_ context.Context, input models.TodoInput) (models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return models.Todo{}, err
	}
	f.lastInput = input
	f.nextID++
	t := models.Todo{
		ID:          fmt.Sprintf("id-%d", f.nextID),
		Title:       input.Title,
		Description: input.Description,
		Date:        time.Date(2024, 1, 1, 0, f.nextID, 0, 0, time.UTC),
	}
	f.todos = append([]models.Todo{t}, f.todos...)
	return t, nil
}

func (f *fakeAPI) Update(_ context.Context, id string, patch models.TodoPatch) (models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPatch = patch
	for i, t := range f.todos {
		if t.ID == id {
			f.todos[i] = patch.Apply(t)
			return f.todos[i], nil
		}
	}
	return models.Todo{}, client.ErrNotFound
}

func (f *fakeAPI) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.todos {
		if t.ID == id {
			f.todos = append(f.todos[:i], f.todos[i+1:]...)
			return nil
		}
	}
	return client.ErrNotFound
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func alt(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}, Alt: true}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

// settle runs API commands and feeds their results back until the model
// stops issuing requests.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil && i < 5; i++ {
		msg := cmd()
		switch msg.(type) {
		case pageLoadedMsg, todoLoadedMsg, todoSavedMsg, todoDeletedMsg, errMsg:
		default:
			t.Fatalf("unexpected message %T", msg)
		}
		m, cmd = update(t, m, msg)
	}
	return m
}

func press(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	m, cmd := update(t, m, msg)
	return settle(t, m, cmd)
}

// pressUI sends a key whose command only drives widgets, e.g. cursor blinks.
func pressUI(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	m, _ = update(t, m, msg)
	return m
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	return pressUI(t, m, runes(s))
}

func started(t *testing.T, api *fakeAPI, pageSize int) Model {
	t.Helper()
	m := New(api, pageSize)
	return settle(t, m, m.Init())
}

func titles(m Model) []string {
	var out []string
	for _, it := range m.list.Items() {
		out = append(out, it.(todoItem).todo.Title)
	}
	return out
}

func TestModel_InitLoadsFirstPage(t *testing.T) {
	api := &fakeAPI{}
	api.seed("Buy milk", "Walk dog", "Pay rent")

	m := started(t, api, 10)

	assert.Equal(t, []string{"Pay rent", "Walk dog", "Buy milk"}, titles(m))
	assert.Equal(t, 1, m.page)
	assert.Equal(t, 1, m.totalPages)
	assert.False(t, m.loading)
	assert.Contains(t, m.View(), "page 1/1")
}

func TestModel_Pagination(t *testing.T) {
	api := &fakeAPI{}
	api.seed("a", "b", "c", "d", "e")

	m := started(t, api, 2)
	assert.Equal(t, 3, m.totalPages)

	m = press(t, m, runes("]"))
	assert.Equal(t, 2, m.page)
	assert.Equal(t, []string{"c", "b"}, titles(m))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 3, m.page)
	assert.Equal(t, []string{"a"}, titles(m))

	// Already on the last page.
	_, cmd := update(t, m, runes("]"))
	assert.Nil(t, cmd)

	m = press(t, m, runes("["))
	assert.Equal(t, 2, m.page)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 1, m.page)
}

func TestModel_Search(t *testing.T) {
	api := &fakeAPI{}
	api.seed("Buy milk", "Walk dog", "Milk the cow")

	m := started(t, api, 10)
	m = pressUI(t, m, runes("/"))
	require.Equal(t, viewSearch, m.view)

	m = typeText(t, m, "milk")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, viewList, m.view)
	assert.Equal(t, "milk", m.search)
	assert.Equal(t, []string{"Milk the cow", "Buy milk"}, titles(m))

	last := api.queries[len(api.queries)-1]
	assert.Equal(t, models.ListQuery{Page: 1, Limit: 10, Search: "milk"}, last)
	assert.Contains(t, m.View(), `search: "milk"`)
}

func TestModel_SearchCancelKeepsQuery(t *testing.T) {
	api := &fakeAPI{}
	m := started(t, api, 10)

	m = pressUI(t, m, runes("/"))
	m = typeText(t, m, "zzz")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, cmd)
	assert.Equal(t, viewList, m.view)
	assert.Empty(t, m.search)
}

func TestModel_CreateTodo(t *testing.T) {
	api := &fakeAPI{}
	m := started(t, api, 10)

	m = pressUI(t, m, runes("n"))
	require.Equal(t, viewForm, m.view)

	m = typeText(t, m, "Buy milk")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Equal(t, models.TodoInput{Title: "Buy milk", Description: ""}, api.lastInput)
	assert.Equal(t, viewList, m.view)
	assert.Equal(t, []string{"Buy milk"}, titles(m))
	assert.Contains(t, m.View(), "Todo created")
}

func TestModel_CreateRequiresTitle(t *testing.T) {
	api := &fakeAPI{}
	m := started(t, api, 10)

	m = pressUI(t, m, runes("n"))
	m = typeText(t, m, "   ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Nil(t, cmd)
	assert.Equal(t, viewForm, m.view)
	assert.Equal(t, "Title cannot be empty", m.form.err)
	assert.Empty(t, api.todos)
}

func TestModel_FormattingCommands(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.KeyMsg
		want string
	}{
		{"plain", nil, "<div>hello</div>"},
		{"bold", []tea.KeyMsg{{Type: tea.KeyCtrlB}}, "<div><b>hello</b></div>"},
		{"bold twice", []tea.KeyMsg{{Type: tea.KeyCtrlB}, {Type: tea.KeyCtrlB}}, "<div>hello</div>"},
		{"italic underline", []tea.KeyMsg{{Type: tea.KeyCtrlT}, {Type: tea.KeyCtrlU}}, "<div><i><u>hello</u></i></div>"},
		{"bullets", []tea.KeyMsg{{Type: tea.KeyCtrlL}}, "<ul><li>hello</li></ul>"},
		{"numbers", []tea.KeyMsg{{Type: tea.KeyCtrlO}}, "<ol><li>hello</li></ol>"},
		{"center", []tea.KeyMsg{alt('c')}, `<div style="text-align: center">hello</div>`},
		{"right then left", []tea.KeyMsg{alt('r'), alt('l')}, "<div>hello</div>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			m := started(t, api, 10)

			m = pressUI(t, m, runes("n"))
			m = typeText(t, m, "Greeting")
			m = pressUI(t, m, tea.KeyMsg{Type: tea.KeyTab})
			m = typeText(t, m, "hello")
			for _, k := range tt.keys {
				m = pressUI(t, m, k)
			}
			m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

			assert.Equal(t, "Greeting", api.lastInput.Title)
			assert.Equal(t, tt.want, api.lastInput.Description)
		})
	}
}

func TestModel_FormattingAppliesToCurrentLine(t *testing.T) {
	api := &fakeAPI{}
	m := started(t, api, 10)

	m = pressUI(t, m, runes("n"))
	m = typeText(t, m, "Lists")
	m = pressUI(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "one")
	m = pressUI(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = typeText(t, m, "two")
	m = pressUI(t, m, tea.KeyMsg{Type: tea.KeyCtrlB})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Equal(t, "<div>one</div><div><b>two</b></div>", api.lastInput.Description)
}

func TestModel_EditKeepsFormatting(t *testing.T) {
	api := &fakeAPI{}
	_, _ = api.Create(context.Background(), models.TodoInput{
		Title:       "Plan",
		Description: "<div><b>bold</b> text</div>",
	})
	m := started(t, api, 10)

	m = pressUI(t, m, runes("e"))
	require.Equal(t, viewForm, m.view)
	assert.Equal(t, "Plan", m.form.title.Value())
	assert.Equal(t, "bold text", m.form.description.Value())

	m = typeText(t, m, " v2")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	require.NotNil(t, api.lastPatch.Title)
	require.NotNil(t, api.lastPatch.Description)
	assert.Equal(t, "Plan v2", *api.lastPatch.Title)
	assert.Equal(t, "<div><b>bold</b> text</div>", *api.lastPatch.Description)
	assert.Contains(t, m.View(), "Todo updated")
}

func TestModel_FormCancel(t *testing.T) {
	api := &fakeAPI{}
	api.seed("Keep me")
	m := started(t, api, 10)

	m = pressUI(t, m, runes("e"))
	m = typeText(t, m, "changed")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, cmd)
	assert.Equal(t, viewList, m.view)
	assert.Equal(t, "Keep me", api.todos[0].Title)
}

func TestModel_DetailView(t *testing.T) {
	api := &fakeAPI{}
	_, _ = api.Create(context.Background(), models.TodoInput{
		Title:       "Groceries",
		Description: "<ul><li>eggs</li><li>bread</li></ul>",
	})
	m := started(t, api, 10)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, viewDetail, m.view)
	assert.Equal(t, "Groceries", m.current.Title)

	out := m.View()
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "• ")
	assert.Contains(t, out, "eggs")
	assert.Contains(t, out, "bread")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, viewList, m.view)
}

func TestModel_DeleteAsksForConfirmation(t *testing.T) {
	api := &fakeAPI{}
	api.seed("Old", "New")
	m := started(t, api, 10)

	m = pressUI(t, m, runes("d"))
	require.Equal(t, viewConfirm, m.view)
	assert.Contains(t, m.View(), `"New"`)

	m, cmd := update(t, m, runes("n"))
	assert.Nil(t, cmd)
	assert.Equal(t, viewList, m.view)
	assert.Len(t, api.todos, 2)

	m = pressUI(t, m, runes("d"))
	m = press(t, m, runes("y"))

	assert.Equal(t, viewList, m.view)
	assert.Equal(t, []string{"Old"}, titles(m))
	assert.Contains(t, m.View(), "Todo deleted")
}

func TestModel_DeleteLastItemOnLastPage(t *testing.T) {
	api := &fakeAPI{}
	api.seed("a", "b", "c")
	m := started(t, api, 2)

	m = press(t, m, runes("]"))
	require.Equal(t, []string{"a"}, titles(m))

	m = pressUI(t, m, runes("d"))
	m = press(t, m, runes("y"))

	assert.Equal(t, 1, m.page)
	assert.Equal(t, 1, m.totalPages)
	assert.Equal(t, []string{"c", "b"}, titles(m))
}

func TestModel_ErrorShownOnce(t *testing.T) {
	api := &fakeAPI{}
	api.seed("a")
	m := started(t, api, 10)

	api.failNext = &client.APIError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "Failed to process todo request"}
	m = press(t, m, runes("r"))

	assert.Contains(t, m.View(), "Failed to process todo request")
	assert.True(t, m.statusErr)

	// The next key press clears it and nothing is retried.
	before := len(api.queries)
	m = pressUI(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.NotContains(t, m.View(), "Failed to process todo request")
	assert.Len(t, api.queries, before)
}

func TestModel_DetailOfDeletedTodo(t *testing.T) {
	api := &fakeAPI{}
	api.seed("gone")
	m := started(t, api, 10)
	api.todos = nil

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, viewList, m.view)
	assert.Contains(t, m.View(), "Todo not found")
}

func TestModel_Quit(t *testing.T) {
	m := started(t, &fakeAPI{}, 10)

	_, cmd := update(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	m = pressUI(t, m, runes("n"))
	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_AgainstHTTPServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/todos", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"todos":[{"_id":"x1","title":"From server","description":"","date":"2024-01-01T00:00:00Z"}],"totalPages":2,"currentPage":2}`)
	}))
	defer srv.Close()

	c, err := client.New(srv.URL)
	require.NoError(t, err)

	m := New(c, 5, WithRequestTimeout(2*time.Second))
	m.page, m.totalPages = 1, 2
	m = press(t, m, runes("]"))

	assert.Equal(t, 2, m.page)
	assert.Equal(t, []string{"From server"}, titles(m))
}
