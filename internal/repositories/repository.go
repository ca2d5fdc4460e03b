// Package repositories persists todos. The Mongo implementation is the
// primary document store; the gorm implementation backs the postgres and
// sqlite drivers with the same contract.
package repositories

import (
	"context"
	"errors"

	"todo-notes/internal/models"
)

var (
	// ErrNotFound is returned when no record matches the identifier,
	// including identifiers that are not well-formed for the store.
	ErrNotFound = errors.New("todo not found")
	// ErrValidation is returned when the store rejects a record.
	ErrValidation = errors.New("todo validation failed")
)

// TodoRepository is the storage contract for the single todos collection.
type TodoRepository interface {
	// List returns one page sorted by date descending and the total number
	// of records matching q.Search.
	List(ctx context.Context, q models.ListQuery) ([]models.Todo, int64, error)
	Get(ctx context.Context, id string) (models.Todo, error)
	Create(ctx context.Context, input models.TodoInput) (models.Todo, error)
	Update(ctx context.Context, id string, patch models.TodoPatch) (models.Todo, error)
	Delete(ctx context.Context, id string) error
	Health() error
}
