package handlers

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"todo-notes/internal/logging"
	"todo-notes/internal/models"
	"todo-notes/internal/repositories"
	"todo-notes/internal/schema"
	"todo-notes/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/zeebo/blake3"
)

type TodoHandler struct {
	todoService services.TodoService
	validator   *schema.Validator
	log         logging.Logger
}

func NewTodoHandler(todoService services.TodoService, validator *schema.Validator, log logging.Logger) *TodoHandler {
	if validator == nil {
		validator = schema.MustNew()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &TodoHandler{todoService: todoService, validator: validator, log: log}
}

// Register mounts the todo routes on rg.
func (h *TodoHandler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.ListTodos)
	rg.POST("", h.CreateTodo)
	rg.GET("/:id", h.GetTodo)
	rg.PUT("/:id", h.UpdateTodo)
	rg.DELETE("/:id", h.DeleteTodo)
}

// queryInt returns 0 for a missing or non-integer value; the service
// replaces it with the default.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

func (h *TodoHandler) ListTodos(c *gin.Context) {
	q := models.ListQuery{
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
		Search: c.Query("search"),
	}

	page, err := h.todoService.ListTodos(c.Request.Context(), q)
	if err != nil {
		h.handleTodoError(c, err)
		return
	}
	writeCacheableJSON(c, page)
}

func (h *TodoHandler) GetTodo(c *gin.Context) {
	todo, err := h.todoService.GetTodo(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleTodoError(c, err)
		return
	}
	writeCacheableJSON(c, todo)
}

func (h *TodoHandler) CreateTodo(c *gin.Context) {
	body, ok := h.validBody(c, schema.CreateTodo)
	if !ok {
		return
	}

	var input models.TodoInput
	if err := json.Unmarshal(body, &input); err != nil {
		validationFailed(c, err.Error())
		return
	}

	todo, err := h.todoService.CreateTodo(c.Request.Context(), input)
	if err != nil {
		h.handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusCreated, todo)
}

func (h *TodoHandler) UpdateTodo(c *gin.Context) {
	body, ok := h.validBody(c, schema.UpdateTodo)
	if !ok {
		return
	}

	var patch models.TodoPatch
	if err := json.Unmarshal(body, &patch); err != nil {
		validationFailed(c, err.Error())
		return
	}

	todo, err := h.todoService.UpdateTodo(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) DeleteTodo(c *gin.Context) {
	if err := h.todoService.DeleteTodo(c.Request.Context(), c.Param("id")); err != nil {
		h.handleTodoError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// validBody reads the raw body and checks it against the named schema. An
// empty body is treated as an empty object.
func (h *TodoHandler) validBody(c *gin.Context, name string) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		validationFailed(c, "could not read request body")
		return nil, false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}

	if err := h.validator.Validate(name, body); err != nil {
		validationFailed(c, err.Error())
		return nil, false
	}
	return body, true
}

func validationFailed(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "validation_failed",
		"message": message,
	})
}

func (h *TodoHandler) handleTodoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Todo not found",
		})
	case errors.Is(err, repositories.ErrValidation):
		validationFailed(c, err.Error())
	default:
		h.log.Error(c.Request.Context(), "todo request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to process todo request",
		})
	}
}

// ETag returns the strong entity tag for a response body.
func ETag(body []byte) string {
	sum := blake3.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// etagMatches implements the If-None-Match weak comparison.
func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func writeCacheableJSON(c *gin.Context, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to encode response",
		})
		return
	}

	etag := ETag(body)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")

	if inm := c.GetHeader("If-None-Match"); inm != "" && etagMatches(inm, etag) {
		c.Status(http.StatusNotModified)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
