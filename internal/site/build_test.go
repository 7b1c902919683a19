package site_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"revsite/internal/asset"
	"revsite/internal/render"
	"revsite/internal/site"
	"revsite/internal/testutil"
)

func TestService_CreateRevision(t *testing.T) {
	ctx := context.Background()

	t.Run("records files routes and pages", func(t *testing.T) {
		env := newTestEnv(t, site.Options{})
		src := testutil.NewSourceTree(t, map[string]string{
			"content/index.md":   "+++\ntitle = \"Hi\"\ntemplate = \"base.hbs\"\n+++\nHello.",
			"templates/base.hbs": "{{content}}",
			"static/robots.txt":  "User-agent: *\n",
		})

		rev, stats, err := env.svc.CreateRevision(ctx, src)
		if err != nil {
			t.Fatalf("CreateRevision() error = %v", err)
		}
		if rev.ID == 0 {
			t.Error("revision has no id")
		}

		if stats.Files != 3 || stats.NewInputFiles != 3 {
			t.Errorf("stats = %+v, want 3 files and 3 new input files", stats)
		}
		if stats.Routes != 2 {
			t.Errorf("stats.Routes = %d, want 2", stats.Routes)
		}
		if stats.Pages != 1 {
			t.Errorf("stats.Pages = %d, want 1", stats.Pages)
		}

		routes, err := env.db.FindRoutesForRevision(ctx, rev.ID)
		if err != nil {
			t.Fatalf("FindRoutesForRevision() error = %v", err)
		}
		got := map[string]bool{}
		for _, r := range routes {
			got[r.Route] = true
		}
		if !got["index.html"] || !got["robots.txt"] || len(got) != 2 {
			t.Errorf("routes = %v, want index.html and robots.txt", got)
		}

		hash := asset.HashContents("content/index.md", []byte("+++\ntitle = \"Hi\"\ntemplate = \"base.hbs\"\n+++\nHello."))
		page, err := env.db.FindPage(ctx, hash.String()+",content/index.md")
		if err != nil {
			t.Fatalf("FindPage() error = %v", err)
		}
		if page == nil {
			t.Fatal("page not created")
		}
		if !page.Title.Valid || page.Title.String != "Hi" {
			t.Errorf("page.Title = %+v, want Hi", page.Title)
		}
		if !page.Template.Valid || page.Template.String != "base.hbs" {
			t.Errorf("page.Template = %+v, want base.hbs", page.Template)
		}
		if page.Draft {
			t.Error("page.Draft = true, want false")
		}
	})

	t.Run("unchanged tree shares input files", func(t *testing.T) {
		env := newTestEnv(t, site.Options{})
		src := testutil.NewSourceTree(t, map[string]string{
			"content/index.md":  "+++\ntitle = \"Hi\"\n+++\nHello.",
			"assets/logo.svg":   "<svg/>",
			"static/robots.txt": "User-agent: *\n",
		})

		first, _, err := env.svc.CreateRevision(ctx, src)
		if err != nil {
			t.Fatalf("first CreateRevision() error = %v", err)
		}
		second, stats, err := env.svc.CreateRevision(ctx, src)
		if err != nil {
			t.Fatalf("second CreateRevision() error = %v", err)
		}
		if first.ID == second.ID {
			t.Fatal("expected two distinct revisions")
		}

		if stats.NewInputFiles != 0 {
			t.Errorf("second build created %d input files, want 0", stats.NewInputFiles)
		}
		if stats.Pages != 0 {
			t.Errorf("second build created %d pages, want 0", stats.Pages)
		}
		if stats.StoredBytes != 0 {
			t.Errorf("second build stored %d bytes, want 0", stats.StoredBytes)
		}

		if n := testutil.CountRows(t, env.sqlDB, "revisions"); n != 2 {
			t.Errorf("revisions = %d, want 2", n)
		}
		if n := testutil.CountRows(t, env.sqlDB, "input_files"); n != 3 {
			t.Errorf("input_files = %d, want 3", n)
		}
		if n := testutil.CountRows(t, env.sqlDB, "revision_files"); n != 6 {
			t.Errorf("revision_files = %d, want 6", n)
		}
		if n := testutil.CountRows(t, env.sqlDB, "pages"); n != 1 {
			t.Errorf("pages = %d, want 1", n)
		}
	})

	t.Run("non-inline file goes to the content store", func(t *testing.T) {
		env := newTestEnv(t, site.Options{})
		data := "plain text that is not inlined\n"
		src := testutil.NewSourceTree(t, map[string]string{
			"static/foo.txt": data,
		})

		rev, _, err := env.svc.CreateRevision(ctx, src)
		if err != nil {
			t.Fatalf("CreateRevision() error = %v", err)
		}

		key := asset.HashContents("static/foo.txt", []byte(data)).String()
		info, err := os.Stat(env.store.Path(key))
		if err != nil {
			t.Fatalf("content store entry missing: %v", err)
		}
		if info.Size() != int64(len(data)) {
			t.Errorf("entry size = %d, want %d", info.Size(), len(data))
		}

		files, err := env.db.FindInputFilesForRevision(ctx, rev.ID)
		if err != nil {
			t.Fatalf("FindInputFilesForRevision() error = %v", err)
		}
		if len(files) != 1 {
			t.Fatalf("got %d input files, want 1", len(files))
		}
		if files[0].Contents != nil {
			t.Error("non-inline input file has inline contents")
		}
		if files[0].ID != key+",static/foo.txt" {
			t.Errorf("input file id = %q", files[0].ID)
		}
	})

	t.Run("inline files skip the content store", func(t *testing.T) {
		env := newTestEnv(t, site.Options{})
		src := testutil.NewSourceTree(t, map[string]string{
			"static/page.html":   "<p>hi</p>",
			"templates/base.hbs": "",
		})

		rev, stats, err := env.svc.CreateRevision(ctx, src)
		if err != nil {
			t.Fatalf("CreateRevision() error = %v", err)
		}
		if stats.StoredBytes != 0 {
			t.Errorf("StoredBytes = %d, want 0", stats.StoredBytes)
		}

		files, err := env.db.FindInputFilesForRevision(ctx, rev.ID)
		if err != nil {
			t.Fatalf("FindInputFilesForRevision() error = %v", err)
		}
		for _, f := range files {
			if f.Contents == nil {
				t.Errorf("%s: contents = nil, want inline bytes", f.LogicalPath)
			}
		}
	})

	t.Run("stylesheet route uses minified hash", func(t *testing.T) {
		env := newTestEnv(t, site.Options{})
		original := "body {\n    color: red;\n}\n"
		src := testutil.NewSourceTree(t, map[string]string{
			"assets/style.css": original,
		})

		rev, _, err := env.svc.CreateRevision(ctx, src)
		if err != nil {
			t.Fatalf("CreateRevision() error = %v", err)
		}

		minified, err := render.MinifyCSS([]byte(original))
		if err != nil {
			t.Fatalf("MinifyCSS() error = %v", err)
		}
		wantHash := asset.HashContents("assets/style.css", minified).String()
		originalHash := asset.HashContents("assets/style.css", []byte(original)).String()

		routes, err := env.db.FindRoutesForRevision(ctx, rev.ID)
		if err != nil {
			t.Fatalf("FindRoutesForRevision() error = %v", err)
		}
		if len(routes) != 1 {
			t.Fatalf("got %d routes, want 1", len(routes))
		}
		if want := "style." + wantHash + ".css"; routes[0].Route != want {
			t.Errorf("route = %q, want %q", routes[0].Route, want)
		}
		if strings.Contains(routes[0].Route, originalHash) {
			t.Error("route embeds the hash of the unminified source")
		}

		var buf strings.Builder
		if err := env.store.GetContent(ctx, wantHash, &buf); err != nil {
			t.Fatalf("GetContent() error = %v", err)
		}
		if buf.String() != string(minified) {
			t.Errorf("stored stylesheet = %q, want %q", buf.String(), minified)
		}
	})

	t.Run("files outside the source directories are not walked", func(t *testing.T) {
		env := newTestEnv(t, site.Options{})
		src := testutil.NewSourceTree(t, map[string]string{
			"content/index.md": "Hello.",
			"README.md":        "not part of the site",
		})

		if _, _, err := env.svc.CreateRevision(ctx, src); err != nil {
			t.Fatalf("CreateRevision() error = %v", err)
		}
		if n := testutil.CountRows(t, env.sqlDB, "input_files"); n != 1 {
			t.Errorf("input_files = %d, want 1", n)
		}
	})

	t.Run("invalid front matter rolls back", func(t *testing.T) {
		env := newTestEnv(t, site.Options{})
		src := testutil.NewSourceTree(t, map[string]string{
			"static/robots.txt": "User-agent: *\n",
			"content/ok.md":     "Fine.",
			"content/bad.md":    "+++\ntitle = \"never closed\"\n",
		})

		_, _, err := env.svc.CreateRevision(ctx, src)
		if err == nil {
			t.Fatal("CreateRevision() expected error for unterminated front matter")
		}

		for _, table := range []string{"revisions", "input_files", "revision_files", "routes", "pages"} {
			if n := testutil.CountRows(t, env.sqlDB, table); n != 0 {
				t.Errorf("%s = %d after failed build, want 0", table, n)
			}
		}
	})

	t.Run("walker failure rolls back", func(t *testing.T) {
		env := newTestEnv(t, site.Options{})
		src := testutil.NewSourceTree(t, map[string]string{
			"assets/logo.png": "png",
			"content/ok.md":   "+++\ntitle = \"Ok\"\n+++\nFine.",
			"static/a.txt":    "a",
		})
		if err := os.WriteFile(filepath.Join(src, "static", "bad\xffname.txt"), []byte("x"), 0644); err != nil {
			t.Skipf("filesystem rejects non UTF-8 names: %v", err)
		}

		_, _, err := env.svc.CreateRevision(ctx, src)
		if !errors.Is(err, asset.ErrInvalidPath) {
			t.Fatalf("CreateRevision() error = %v, want ErrInvalidPath", err)
		}

		for _, table := range []string{"revisions", "input_files", "revision_files", "routes", "pages"} {
			if n := testutil.CountRows(t, env.sqlDB, table); n != 0 {
				t.Errorf("%s = %d after failed build, want 0", table, n)
			}
		}
	})

	t.Run("unreadable file rolls back", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("file permissions do not apply to root")
		}
		env := newTestEnv(t, site.Options{})
		src := testutil.NewSourceTree(t, map[string]string{
			"content/ok.md": "Fine.",
			"static/x.bin":  "secret",
		})
		unreadable := filepath.Join(src, "static", "x.bin")
		if err := os.Chmod(unreadable, 0); err != nil {
			t.Fatalf("chmod: %v", err)
		}
		t.Cleanup(func() { os.Chmod(unreadable, 0644) })

		_, _, err := env.svc.CreateRevision(ctx, src)
		if !errors.Is(err, os.ErrPermission) {
			t.Fatalf("CreateRevision() error = %v, want permission error", err)
		}

		for _, table := range []string{"revisions", "input_files", "revision_files", "routes", "pages"} {
			if n := testutil.CountRows(t, env.sqlDB, table); n != 0 {
				t.Errorf("%s = %d after failed build, want 0", table, n)
			}
		}
	})

	t.Run("missing source directory", func(t *testing.T) {
		env := newTestEnv(t, site.Options{})

		_, _, err := env.svc.CreateRevision(ctx, t.TempDir()+"/missing")
		if err == nil {
			t.Error("CreateRevision() expected error for missing source")
		}
	})

	t.Run("source is a file", func(t *testing.T) {
		env := newTestEnv(t, site.Options{})
		src := testutil.NewSourceTree(t, map[string]string{"file": "x"})

		_, _, err := env.svc.CreateRevision(ctx, src+"/file")
		if err == nil {
			t.Error("CreateRevision() expected error for non-directory source")
		}
	})

	t.Run("empty files", func(t *testing.T) {
		env := newTestEnv(t, site.Options{})
		src := testutil.NewSourceTree(t, map[string]string{
			"content/empty.md": "",
			"static/empty.bin": "",
		})

		rev, _, err := env.svc.CreateRevision(ctx, src)
		if err != nil {
			t.Fatalf("CreateRevision() error = %v", err)
		}

		files, err := env.db.FindInputFilesForRevision(ctx, rev.ID)
		if err != nil {
			t.Fatalf("FindInputFilesForRevision() error = %v", err)
		}
		for _, f := range files {
			switch f.LogicalPath {
			case "content/empty.md":
				if f.Contents == nil || len(f.Contents) != 0 {
					t.Errorf("empty inline file contents = %#v, want empty non-nil", f.Contents)
				}
			case "static/empty.bin":
				if f.Contents != nil {
					t.Errorf("empty non-inline file has inline contents")
				}
				size, ok, err := env.store.StatContent(ctx, asset.HashContents(f.LogicalPath, nil).String())
				if err != nil || !ok || size != 0 {
					t.Errorf("StatContent() = %d, %v, %v; want empty entry", size, ok, err)
				}
			}
		}
	})
}
