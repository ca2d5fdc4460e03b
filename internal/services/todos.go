package services

import (
	"context"
	"fmt"
	"time"

	"todo-notes/internal/logging"
	"todo-notes/internal/models"
	"todo-notes/internal/repositories"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

type TodoService interface {
	ListTodos(ctx context.Context, q models.ListQuery) (models.TodoPage, error)
	GetTodo(ctx context.Context, id string) (models.Todo, error)
	CreateTodo(ctx context.Context, input models.TodoInput) (models.Todo, error)
	UpdateTodo(ctx context.Context, id string, patch models.TodoPatch) (models.Todo, error)
	DeleteTodo(ctx context.Context, id string) error
	Health() error
}

type TodoServiceImpl struct {
	repo         repositories.TodoRepository
	queryTimeout time.Duration
	log          logging.Logger
}

func NewTodoService(repo repositories.TodoRepository, queryTimeout time.Duration, log logging.Logger) *TodoServiceImpl {
	if log == nil {
		log = logging.Nop()
	}
	return &TodoServiceImpl{repo: repo, queryTimeout: queryTimeout, log: log}
}

// NormalizeQuery replaces a non-positive page or limit with its default.
func NormalizeQuery(q models.ListQuery) models.ListQuery {
	if q.Page <= 0 {
		q.Page = DefaultPage
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// TotalPages is ceil(total/limit), never less than one.
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 1
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	if pages < 1 {
		return 1
	}
	return pages
}

func (s *TodoServiceImpl) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

func (s *TodoServiceImpl) ListTodos(ctx context.Context, q models.ListQuery) (models.TodoPage, error) {
	q = NormalizeQuery(q)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	todos, total, err := s.repo.List(ctx, q)
	if err != nil {
		s.log.Error(ctx, "list todos failed", "page", q.Page, "limit", q.Limit, "error", err)
		return models.TodoPage{}, err
	}
	if todos == nil {
		todos = []models.Todo{}
	}

	return models.TodoPage{
		Todos:       todos,
		TotalPages:  TotalPages(total, q.Limit),
		CurrentPage: q.Page,
	}, nil
}

func (s *TodoServiceImpl) GetTodo(ctx context.Context, id string) (models.Todo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.Get(ctx, id)
}

func (s *TodoServiceImpl) CreateTodo(ctx context.Context, input models.TodoInput) (models.Todo, error) {
	if input.Title == "" {
		return models.Todo{}, fmt.Errorf("%w: title is required", repositories.ErrValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	todo, err := s.repo.Create(ctx, input)
	if err != nil {
		return models.Todo{}, err
	}

	s.log.Info(ctx, "todo created", "id", todo.ID)
	return todo, nil
}

func (s *TodoServiceImpl) UpdateTodo(ctx context.Context, id string, patch models.TodoPatch) (models.Todo, error) {
	if patch.Title != nil && *patch.Title == "" {
		return models.Todo{}, fmt.Errorf("%w: title must not be empty", repositories.ErrValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	todo, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return models.Todo{}, err
	}

	s.log.Info(ctx, "todo updated", "id", id)
	return todo, nil
}

func (s *TodoServiceImpl) DeleteTodo(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info(ctx, "todo deleted", "id", id)
	return nil
}

func (s *TodoServiceImpl) Health() error {
	return s.repo.Health()
}
