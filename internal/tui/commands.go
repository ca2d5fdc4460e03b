package tui

import (
	"context"
	"errors"
	"time"

	"todo-notes/internal/client"
	"todo-notes/internal/models"

	tea "github.com/charmbracelet/bubbletea"
)

// TodoAPI is the part of client.Client the terminal UI needs.
type TodoAPI interface {
	List(ctx context.Context, q models.ListQuery) (models.TodoPage, error)
	Get(ctx context.Context, id string) (models.Todo, error)
	Create(ctx context.Context, input models.TodoInput) (models.Todo, error)
	Update(ctx context.Context, id string, patch models.TodoPatch) (models.Todo, error)
	Delete(ctx context.Context, id string) error
}

var _ TodoAPI = (*client.Client)(nil)

type pageLoadedMsg struct {
	page  models.TodoPage
	query models.ListQuery
}

type todoLoadedMsg struct{ todo models.Todo }

type todoSavedMsg struct {
	todo    models.Todo
	created bool
}

type todoDeletedMsg struct{ id string }

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// describeError turns a request failure into a status line.
func describeError(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrNotFound):
		return "Todo not found"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"
	default:
		return err.Error()
	}
}

func withTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func listCmd(api TodoAPI, q models.ListQuery, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()

		page, err := api.List(ctx, q)
		if err != nil {
			return errMsg{err}
		}
		return pageLoadedMsg{page: page, query: q}
	}
}

func getCmd(api TodoAPI, id string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()

		todo, err := api.Get(ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return todoLoadedMsg{todo: todo}
	}
}

func createCmd(api TodoAPI, input models.TodoInput, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()

		todo, err := api.Create(ctx, input)
		if err != nil {
			return errMsg{err}
		}
		return todoSavedMsg{todo: todo, created: true}
	}
}

func updateCmd(api TodoAPI, id string, patch models.TodoPatch, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()

		todo, err := api.Update(ctx, id, patch)
		if err != nil {
			return errMsg{err}
		}
		return todoSavedMsg{todo: todo}
	}
}

func deleteCmd(api TodoAPI, id string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()

		if err := api.Delete(ctx, id); err != nil {
			return errMsg{err}
		}
		return todoDeletedMsg{id: id}
	}
}
