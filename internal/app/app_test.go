package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"revsite/internal/config"
	"revsite/internal/site"
	"revsite/internal/testutil"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.NewConfig(base)
	cfg.Database = config.DatabaseConfig{Type: "memory"}
	cfg.ContentStore = config.ContentStoreConfig{Type: "memory"}
	cfg.Publish.BuildDir = filepath.Join(base, "build")
	cfg.LogLevel = "error"
	return cfg
}

func TestSiteApp_CreateAndPublish(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	cfg.Metrics.Textfile = filepath.Join(cfg.BaseDir, "revsite.prom")

	a, err := NewSiteApp(ctx, cfg, "create")
	if err != nil {
		t.Fatalf("NewSiteApp() error = %v", err)
	}

	src := testutil.NewSourceTree(t, map[string]string{
		"content/index.md":   "+++\ntitle = \"Hi\"\ntemplate = \"base.hbs\"\n+++\nHello.",
		"templates/base.hbs": "<title>{{title}}</title>{{content}}",
		"static/robots.txt":  "User-agent: *\n",
	})

	rev, stats, err := a.CreateRevision(ctx, src)
	if err != nil {
		t.Fatalf("CreateRevision() error = %v", err)
	}
	if stats.Files != 3 {
		t.Errorf("stats.Files = %d, want 3", stats.Files)
	}

	result, err := a.Publish(ctx, site.PublishOptions{})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if result.Revision.ID != rev.ID {
		t.Errorf("published revision %d, want %d", result.Revision.ID, rev.ID)
	}

	index := testutil.ReadFile(t, cfg.Publish.BuildDir, "index.html")
	if !strings.Contains(index, "<title>Hi</title><p>Hello.</p>") {
		t.Errorf("index.html = %q", index)
	}
	if got := testutil.ReadFile(t, cfg.Publish.BuildDir, "robots.txt"); got != "User-agent: *\n" {
		t.Errorf("robots.txt = %q", got)
	}

	ops, err := a.GetHistory(ctx, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(ops) != 1 || ops[0].Operation != "create" || ops[0].Status != "running" {
		t.Errorf("history = %+v, want one running create operation", ops)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	data, err := os.ReadFile(cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
	if !strings.Contains(string(data), "revsite_routes_published_total") {
		t.Errorf("metrics textfile missing publish counter:\n%s", data)
	}
}

func TestSiteApp_OperationStatus(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	cfg.Database = config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(cfg.BaseDir, "revsite.db")}

	a, err := NewSiteApp(ctx, cfg, "delete")
	if err != nil {
		t.Fatalf("NewSiteApp() error = %v", err)
	}
	err = a.DeleteRevision(ctx, 42)
	if !errors.Is(err, site.ErrRevisionNotFound) {
		t.Errorf("DeleteRevision() error = %v, want ErrRevisionNotFound", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	a, err = NewSiteApp(ctx, cfg, "history")
	if err != nil {
		t.Fatalf("NewSiteApp() error = %v", err)
	}
	defer a.Close()

	ops, err := a.GetHistory(ctx, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d operations, want 1", len(ops))
	}
	op := ops[0]
	if op.Operation != "delete" || op.Parameters != "42" {
		t.Errorf("operation = %+v", op)
	}
	if op.Status != StatusError {
		t.Errorf("Status = %q, want %q", op.Status, StatusError)
	}
	if !op.FinishedAt.Valid {
		t.Error("FinishedAt not recorded")
	}
}

func TestNewSiteApp_InvalidConfig(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.UnknownFiles = "ignore"

	if _, err := NewSiteApp(context.Background(), cfg, "create"); err == nil {
		t.Error("NewSiteApp() expected error for invalid config")
	}
}
