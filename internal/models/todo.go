package models

import (
	"math"
	"time"
)

// Todo is one persisted to-do item. Description holds an HTML fragment that
// is stored and returned verbatim.
type Todo struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

type TodoInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TodoPatch carries a partial update. Nil fields are left untouched.
type TodoPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil
}

// Fields returns the patch as column/field name to value pairs.
func (p TodoPatch) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	return fields
}

// Apply returns a copy of todo with the patch fields overwritten.
func (p TodoPatch) Apply(todo Todo) Todo {
	if p.Title != nil {
		todo.Title = *p.Title
	}
	if p.Description != nil {
		todo.Description = *p.Description
	}
	return todo
}

type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

// Skip is the number of records before the page. It saturates at
// math.MaxInt so a page far past the end selects nothing.
func (q ListQuery) Skip() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// TodoPage is one page of the date-descending listing.
type TodoPage struct {
	Todos       []Todo `json:"todos"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
}
