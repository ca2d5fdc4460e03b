package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"todo-notes/internal/handlers"
	"todo-notes/internal/models"
	"todo-notes/internal/repositories"

	"github.com/gin-gonic/gin"
)

type MockTodoService struct {
	shouldReturnError bool
	todos             []models.Todo
	lastQuery         models.ListQuery
	lastPatch         models.TodoPatch
}

var fixedDate = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func (m *MockTodoService) ListTodos(ctx context.Context, q models.ListQuery) (models.TodoPage, error) {
	m.lastQuery = q
	if m.shouldReturnError {
		return models.TodoPage{}, errors.New("store down")
	}
	todos := m.todos
	if todos == nil {
		todos = []models.Todo{}
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	return models.TodoPage{Todos: todos, TotalPages: 1, CurrentPage: page}, nil
}

func (m *MockTodoService) find(id string) (models.Todo, int, error) {
	for i, todo := range m.todos {
		if todo.ID == id {
			return todo, i, nil
		}
	}
	return models.Todo{}, -1, repositories.ErrNotFound
}

func (m *MockTodoService) GetTodo(ctx context.Context, id string) (models.Todo, error) {
	if m.shouldReturnError {
		return models.Todo{}, errors.New("store down")
	}
	todo, _, err := m.find(id)
	return todo, err
}

func (m *MockTodoService) CreateTodo(ctx context.Context, input models.TodoInput) (models.Todo, error) {
	if m.shouldReturnError {
		return models.Todo{}, fmt.Errorf("%w: rejected by store", repositories.ErrValidation)
	}
	todo := models.Todo{
		ID:          fmt.Sprintf("%024d", len(m.todos)+1),
		Title:       input.Title,
		Description: input.Description,
		Date:        fixedDate,
	}
	m.todos = append(m.todos, todo)
	return todo, nil
}

func (m *MockTodoService) UpdateTodo(ctx context.Context, id string, patch models.TodoPatch) (models.Todo, error) {
	m.lastPatch = patch
	if m.shouldReturnError {
		return models.Todo{}, errors.New("store down")
	}
	todo, i, err := m.find(id)
	if err != nil {
		return todo, err
	}
	todo = patch.Apply(todo)
	m.todos[i] = todo
	return todo, nil
}

func (m *MockTodoService) DeleteTodo(ctx context.Context, id string) error {
	if m.shouldReturnError {
		return errors.New("store down")
	}
	_, i, err := m.find(id)
	if err != nil {
		return err
	}
	m.todos = append(m.todos[:i], m.todos[i+1:]...)
	return nil
}

func (m *MockTodoService) Health() error { return nil }

func setupTodoHandler() (*MockTodoService, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	mockService := &MockTodoService{}
	handler := handlers.NewTodoHandler(mockService, nil, nil)
	router := gin.New()
	handler.Register(router.Group("/api/todos"))
	return mockService, router
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateTodo(t *testing.T) {
	_, router := setupTodoHandler()

	w := doRequest(router, "POST", "/api/todos", `{"title":"A","description":""}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var todo models.Todo
	if err := json.Unmarshal(w.Body.Bytes(), &todo); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if todo.Title != "A" {
		t.Errorf("Expected title A, got %q", todo.Title)
	}
	if todo.ID == "" {
		t.Error("Expected a non-empty _id")
	}
	if !strings.Contains(w.Body.String(), `"_id"`) {
		t.Errorf("Expected _id field in body, got %s", w.Body.String())
	}
}

func TestCreateTodoValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "invalid json"},
		{"missing title", `{"description":"x"}`},
		{"empty title", `{"title":""}`},
		{"non-string title", `{"title":5}`},
		{"empty body", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, router := setupTodoHandler()

			w := doRequest(router, "POST", "/api/todos", tt.body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
			if !strings.Contains(w.Body.String(), `"error":"validation_failed"`) {
				t.Errorf("Expected validation_failed body, got %s", w.Body.String())
			}
			if len(mock.todos) != 0 {
				t.Error("Expected nothing to be stored")
			}
		})
	}
}

func TestCreateTodoStoreValidation(t *testing.T) {
	mock, router := setupTodoHandler()
	mock.shouldReturnError = true

	w := doRequest(router, "POST", "/api/todos", `{"title":"A"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCreateTodoKeepsHTML(t *testing.T) {
	mock, router := setupTodoHandler()
	desc := `<div style=\"text-align: center\"><b>hi</b></div>`

	w := doRequest(router, "POST", "/api/todos", `{"title":"A","description":"`+desc+`"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d", http.StatusCreated, w.Code)
	}
	if mock.todos[0].Description != `<div style="text-align: center"><b>hi</b></div>` {
		t.Errorf("Expected description stored verbatim, got %q", mock.todos[0].Description)
	}
}

func TestListTodos(t *testing.T) {
	mock, router := setupTodoHandler()
	mock.todos = []models.Todo{{ID: "1", Title: "Buy milk", Date: fixedDate}}

	w := doRequest(router, "GET", "/api/todos?page=2&limit=5&search=milk", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if mock.lastQuery != (models.ListQuery{Page: 2, Limit: 5, Search: "milk"}) {
		t.Errorf("Unexpected query %+v", mock.lastQuery)
	}

	var page models.TodoPage
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if page.CurrentPage != 2 || len(page.Todos) != 1 {
		t.Errorf("Unexpected page %+v", page)
	}
}

func TestListTodosBadParamsFallBack(t *testing.T) {
	mock, router := setupTodoHandler()

	w := doRequest(router, "GET", "/api/todos?page=abc&limit=-1", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if mock.lastQuery.Page != 0 || mock.lastQuery.Limit != -1 {
		t.Errorf("Expected raw values to reach the service for normalisation, got %+v", mock.lastQuery)
	}
}

func TestListTodosEmptyIsArray(t *testing.T) {
	_, router := setupTodoHandler()

	w := doRequest(router, "GET", "/api/todos", "")

	if !strings.Contains(w.Body.String(), `"todos":[]`) {
		t.Errorf("Expected empty array, got %s", w.Body.String())
	}
}

func TestListTodosError(t *testing.T) {
	mock, router := setupTodoHandler()
	mock.shouldReturnError = true

	w := doRequest(router, "GET", "/api/todos", "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestListTodosConditionalGet(t *testing.T) {
	mock, router := setupTodoHandler()
	mock.todos = []models.Todo{{ID: "1", Title: "A", Date: fixedDate}}

	w := doRequest(router, "GET", "/api/todos", "")
	etag := w.Header().Get("ETag")
	if etag == "" || etag != handlers.ETag(w.Body.Bytes()) {
		t.Fatalf("Expected ETag over the body, got %q", etag)
	}

	req, _ := http.NewRequest("GET", "/api/todos", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Errorf("Expected status %d, got %d", http.StatusNotModified, w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected empty body, got %s", w.Body.String())
	}

	mock.todos[0].Title = "B"
	req, _ = http.NewRequest("GET", "/api/todos", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected a changed list to return %d, got %d", http.StatusOK, w.Code)
	}
}

func TestGetTodo(t *testing.T) {
	mock, router := setupTodoHandler()
	mock.todos = []models.Todo{{ID: "abc", Title: "A", Date: fixedDate}}

	w := doRequest(router, "GET", "/api/todos/abc", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	w = doRequest(router, "GET", "/api/todos/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if w.Body.String() != `{"error":"not_found","message":"Todo not found"}` {
		t.Errorf("Unexpected not-found body %s", w.Body.String())
	}
}

func TestUpdateTodo(t *testing.T) {
	mock, router := setupTodoHandler()
	mock.todos = []models.Todo{{ID: "abc", Title: "old", Description: "<i>d</i>", Date: fixedDate}}

	w := doRequest(router, "PUT", "/api/todos/abc", `{"title":"new"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if mock.lastPatch.Description != nil {
		t.Error("Expected absent description to stay nil in the patch")
	}

	var todo models.Todo
	json.Unmarshal(w.Body.Bytes(), &todo)
	if todo.Title != "new" || todo.Description != "<i>d</i>" {
		t.Errorf("Unexpected updated todo %+v", todo)
	}
}

func TestUpdateTodoEmptyBody(t *testing.T) {
	mock, router := setupTodoHandler()
	mock.todos = []models.Todo{{ID: "abc", Title: "same", Date: fixedDate}}

	w := doRequest(router, "PUT", "/api/todos/abc", "")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !mock.lastPatch.IsEmpty() {
		t.Errorf("Expected an empty patch, got %+v", mock.lastPatch)
	}
}

func TestUpdateTodoNotFound(t *testing.T) {
	_, router := setupTodoHandler()

	w := doRequest(router, "PUT", "/api/todos/missing", `{"title":"x"}`)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if !strings.Contains(w.Body.String(), `"message":"Todo not found"`) {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}

func TestUpdateTodoInvalid(t *testing.T) {
	mock, router := setupTodoHandler()
	mock.todos = []models.Todo{{ID: "abc", Title: "old", Date: fixedDate}}

	for _, body := range []string{`{"title":""}`, `{"title":null}`, `{"description":7}`, `[`} {
		w := doRequest(router, "PUT", "/api/todos/abc", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Body %s: expected status %d, got %d", body, http.StatusBadRequest, w.Code)
		}
	}
	if mock.todos[0].Title != "old" {
		t.Error("Expected todo to be unchanged")
	}
}

func TestDeleteTodoTwice(t *testing.T) {
	mock, router := setupTodoHandler()
	mock.todos = []models.Todo{{ID: "abc", Title: "gone", Date: fixedDate}}

	w := doRequest(router, "DELETE", "/api/todos/abc", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status %d, got %d", http.StatusNoContent, w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected no body, got %s", w.Body.String())
	}

	w = doRequest(router, "DELETE", "/api/todos/abc", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestDeleteTodoError(t *testing.T) {
	mock, router := setupTodoHandler()
	mock.shouldReturnError = true

	w := doRequest(router, "DELETE", "/api/todos/abc", "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error":"internal_error"`) {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}
