package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"todo-notes/internal/client"
	"todo-notes/internal/config"
	"todo-notes/internal/logging"
	"todo-notes/internal/models"
	"todo-notes/internal/richtext"
	"todo-notes/internal/server"

	"github.com/gin-gonic/gin"
)

func TestLoadConfig_Layers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "server:\n  port: \"7000\"\nstore:\n  driver: sqlite\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PORT", "7100")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := loadConfig([]string{"--config", path, "--log-level", "error"})
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Store.Driver != config.StoreSQLite {
		t.Errorf("Expected store from file, got %q", cfg.Store.Driver)
	}
	if cfg.Server.Port != "7100" {
		t.Errorf("Expected env PORT to override file, got %q", cfg.Server.Port)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Expected flag to override env, got %q", cfg.Log.Level)
	}
}

func TestLoadConfig_FileFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"7200\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")

	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Port != "7200" {
		t.Errorf("Expected port from CONFIG_FILE, got %q", cfg.Server.Port)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Port != "5000" {
		t.Errorf("Expected default port 5000, got %q", cfg.Server.Port)
	}
	if cfg.Mongo.URI != "mongodb://localhost:27017/todo" {
		t.Errorf("Unexpected default mongo URI %q", cfg.Mongo.URI)
	}
}

func TestLoadConfig_RejectsUnknownStore(t *testing.T) {
	if _, err := loadConfig([]string{"--store", "cassandra"}); err == nil {
		t.Fatal("Expected an error for an unknown store driver")
	}
}

func newIntegrationServer(t *testing.T) *client.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Store.Driver = config.StoreSQLite
	cfg.Database.SQLitePath = ":memory:"
	cfg.Database.LogLevel = "silent"
	cfg.Cache.Enabled = true
	cfg.Cache.UseRedis = false

	store, err := server.OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	srv := server.New(cfg, store, logging.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close(context.Background())
	})

	c, err := client.New(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestTodoFlow_EndToEnd(t *testing.T) {
	c := newIntegrationServer(t)
	ctx := context.Background()

	doc := richtext.FromPlainText("eggs\nbread")
	doc, err := doc.Apply(richtext.CmdUnorderedList, richtext.Line(doc, 0))
	if err != nil {
		t.Fatal(err)
	}
	doc, err = doc.Apply(richtext.CmdUnorderedList, richtext.Line(doc, 1))
	if err != nil {
		t.Fatal(err)
	}
	doc, err = doc.Apply(richtext.CmdBold, richtext.Line(doc, 0))
	if err != nil {
		t.Fatal(err)
	}

	created, err := c.Create(ctx, models.TodoInput{Title: "Groceries", Description: doc.HTML()})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Expected a non-empty id")
	}
	if created.Description != "<ul><li><b>eggs</b></li><li>bread</li></ul>" {
		t.Errorf("Description not kept verbatim: %q", created.Description)
	}

	for _, title := range []string{"Call mom", "Pay rent"} {
		if _, err := c.Create(ctx, models.TodoInput{Title: title}); err != nil {
			t.Fatal(err)
		}
	}

	page, err := c.List(ctx, models.ListQuery{Page: 1, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Todos) != 2 || page.TotalPages != 2 || page.Todos[0].Title != "Pay rent" {
		t.Errorf("Unexpected first page: %+v", page)
	}

	page, err = c.List(ctx, models.ListQuery{Page: 1, Limit: 10, Search: "groc"})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Todos) != 1 || page.Todos[0].ID != created.ID {
		t.Errorf("Search returned %+v", page.Todos)
	}

	title := "Groceries for Sunday"
	for i := 0; i < 2; i++ {
		updated, err := c.Update(ctx, created.ID, models.TodoPatch{Title: &title})
		if err != nil {
			t.Fatalf("Update %d failed: %v", i, err)
		}
		if updated.Title != title || updated.Description != created.Description {
			t.Errorf("Unexpected update result: %+v", updated)
		}
	}

	got, err := c.Get(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := richtext.Parse(got.Description)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.HTML() != got.Description {
		t.Errorf("Round trip changed the description: %q", parsed.HTML())
	}

	if err := c.Delete(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, created.ID); err == nil {
		t.Error("Expected not found after delete")
	}
	if err := c.Delete(ctx, created.ID); err == nil {
		t.Error("Expected the second delete to fail")
	}

	missing := "x"
	if _, err := c.Update(ctx, "00000000-0000-4000-8000-000000000000", models.TodoPatch{Title: &missing}); err == nil {
		t.Error("Expected not found for an unknown id")
	}
}

func TestTodoFlow_RejectsEmptyTitle(t *testing.T) {
	c := newIntegrationServer(t)

	_, err := c.Create(context.Background(), models.TodoInput{Title: ""})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("Expected a 400, got %v", err)
	}
}
