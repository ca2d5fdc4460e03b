package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"todo-notes/internal/cache"
	"todo-notes/internal/logging"
	"todo-notes/internal/models"
)

const pageKeyPattern = "todos_page:*"

// CachedTodoService is a read-through cache in front of a TodoService.
// Every write drops the affected todo and all cached pages, since a create
// or delete shifts every page after it.
type CachedTodoService struct {
	todoService TodoService
	cache       cache.Cache
	todoTTL     time.Duration
	pageTTL     time.Duration
	log         logging.Logger
}

func NewCachedTodoService(todoService TodoService, c cache.Cache, todoTTL, pageTTL time.Duration, log logging.Logger) *CachedTodoService {
	if log == nil {
		log = logging.Nop()
	}
	return &CachedTodoService{
		todoService: todoService,
		cache:       c,
		todoTTL:     todoTTL,
		pageTTL:     pageTTL,
		log:         log,
	}
}

func todoKey(id string) string {
	return "todo:" + url.QueryEscape(id)
}

// pageKey escapes the search term so it can never contain glob
// metacharacters or separators.
func pageKey(q models.ListQuery) string {
	return fmt.Sprintf("todos_page:%d:%d:%s", q.Page, q.Limit, url.QueryEscape(q.Search))
}

func (s *CachedTodoService) ListTodos(ctx context.Context, q models.ListQuery) (models.TodoPage, error) {
	q = NormalizeQuery(q)
	key := pageKey(q)

	var cached models.TodoPage
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		if cached.Todos == nil {
			cached.Todos = []models.Todo{}
		}
		return cached, nil
	}

	page, err := s.todoService.ListTodos(ctx, q)
	if err != nil {
		return page, err
	}

	s.set(ctx, key, page, s.pageTTL)
	return page, nil
}

func (s *CachedTodoService) GetTodo(ctx context.Context, id string) (models.Todo, error) {
	key := todoKey(id)

	var cached models.Todo
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	todo, err := s.todoService.GetTodo(ctx, id)
	if err != nil {
		return todo, err
	}

	s.set(ctx, key, todo, s.todoTTL)
	return todo, nil
}

func (s *CachedTodoService) CreateTodo(ctx context.Context, input models.TodoInput) (models.Todo, error) {
	todo, err := s.todoService.CreateTodo(ctx, input)
	if err != nil {
		return todo, err
	}

	s.set(ctx, todoKey(todo.ID), todo, s.todoTTL)
	s.invalidatePages(ctx)
	return todo, nil
}

func (s *CachedTodoService) UpdateTodo(ctx context.Context, id string, patch models.TodoPatch) (models.Todo, error) {
	todo, err := s.todoService.UpdateTodo(ctx, id, patch)
	if err != nil {
		return todo, err
	}

	s.set(ctx, todoKey(id), todo, s.todoTTL)
	s.invalidatePages(ctx)
	return todo, nil
}

func (s *CachedTodoService) DeleteTodo(ctx context.Context, id string) error {
	if err := s.todoService.DeleteTodo(ctx, id); err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, todoKey(id)); err != nil {
		s.log.Warn(ctx, "cache delete failed", "id", id, "error", err)
	}
	s.invalidatePages(ctx)
	return nil
}

func (s *CachedTodoService) Health() error {
	return s.todoService.Health()
}

func (s *CachedTodoService) GetCacheStats() map[string]interface{} {
	return s.cache.Stats()
}

func (s *CachedTodoService) set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.log.Warn(ctx, "cache set failed", "key", key, "error", err)
	}
}

func (s *CachedTodoService) invalidatePages(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, pageKeyPattern); err != nil {
		s.log.Warn(ctx, "cache page invalidation failed", "error", err)
	}
}
