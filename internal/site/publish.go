package site

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"revsite/internal/database/sqlc"
	"revsite/internal/render"
)

// PublishOptions selects what Publish renders and where.
type PublishOptions struct {
	// RevisionID selects the revision; 0 publishes the newest one.
	RevisionID int64
	// BaseURL is the absolute URL the site is served from.
	BaseURL string
	// BuildDir is the output root.
	BuildDir string

	// Drafts, Future and Expired publish pages that are drafts, have a
	// publish date in the future or an expiry date in the past.
	Drafts  bool
	Future  bool
	Expired bool

	// Concurrency bounds the number of routes rendered at once; 0 uses
	// GOMAXPROCS.
	Concurrency int
}

// PublishResult summarizes a Publish run.
type PublishResult struct {
	Revision *sqlc.Revision
	Written  int
	Skipped  int
	Warnings []render.LinkWarning
}

// Publish renders a revision into opts.BuildDir. Content pages go through
// Markdown, their template and link rewriting; inline HTML files are
// rewritten; every other file is copied verbatim. Unresolved links are
// logged and returned as warnings.
func (s *Service) Publish(ctx context.Context, opts PublishOptions) (*PublishResult, error) {
	start := time.Now()

	rev, err := s.resolveRevision(ctx, opts.RevisionID)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute: %s", opts.BaseURL)
	}
	if opts.BuildDir == "" {
		return nil, fmt.Errorf("build directory required")
	}

	routes, err := s.database.FindRoutesForRevision(ctx, rev.ID)
	if err != nil {
		return nil, err
	}
	files, err := s.database.FindInputFilesForRevision(ctx, rev.ID)
	if err != nil {
		return nil, err
	}

	table := newRouteTable(ctx, s.store, routes, files)
	run := &publishRun{
		svc:      s,
		opts:     opts,
		now:      s.clock.Now(),
		table:    table,
		rewriter: render.NewRewriter(base, table),
		result:   &PublishResult{Revision: rev},
	}
	run.templates = render.NewTemplates(run.loadTemplate)

	limit := opts.Concurrency
	if limit < 1 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, route := range routes {
		g.Go(func() error {
			return run.publishRoute(gctx, route)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("publishing revision %d: %w", rev.ID, err)
	}

	s.recorder.ObserveStageDuration("publish", time.Since(start))
	s.logger.Info("revision published",
		"revision", rev.ID,
		"build_dir", opts.BuildDir,
		"written", run.result.Written,
		"skipped", run.result.Skipped,
		"warnings", len(run.result.Warnings),
		"templates", run.templates.Len(),
	)
	return run.result, nil
}

func (s *Service) resolveRevision(ctx context.Context, id int64) (*sqlc.Revision, error) {
	var (
		rev *sqlc.Revision
		err error
	)
	if id == 0 {
		rev, err = s.database.FindLatestRevision(ctx)
	} else {
		rev, err = s.database.FindRevision(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if rev == nil {
		if id == 0 {
			return nil, fmt.Errorf("%w: no revisions recorded", ErrRevisionNotFound)
		}
		return nil, fmt.Errorf("%w: %d", ErrRevisionNotFound, id)
	}
	return rev, nil
}

// publishRun holds the state shared by the routes of one Publish call.
type publishRun struct {
	svc       *Service
	opts      PublishOptions
	now       time.Time
	table     *routeTable
	rewriter  *render.Rewriter
	templates *render.Templates

	mu     sync.Mutex
	result *PublishResult
}

func (p *publishRun) publishRoute(ctx context.Context, route *sqlc.Route) error {
	f, ok := p.table.files[route.InputFileID]
	if !ok {
		return fmt.Errorf("route %s references unknown input file %s", route.Route, route.InputFileID)
	}
	dest := filepath.Join(p.opts.BuildDir, filepath.FromSlash(route.Route))

	kind := Classify(f.LogicalPath)
	switch kind {
	case KindContent:
		return p.publishPage(ctx, route.Route, f, dest)
	case KindAsset, KindStatic:
		return p.publishFile(ctx, route.Route, f, dest, kind)
	default:
		p.svc.logger.Warn("route has no publishable kind", "route", route.Route, "path", f.LogicalPath)
		return nil
	}
}

func (p *publishRun) publishPage(ctx context.Context, route string, f *sqlc.InputFile, dest string) error {
	if f.Contents == nil {
		return fmt.Errorf("%w: %s", ErrNotInline, f.LogicalPath)
	}

	page, err := p.svc.database.FindPage(ctx, f.ID)
	if err != nil {
		return err
	}
	if page == nil {
		return fmt.Errorf("no page metadata for %s", f.LogicalPath)
	}

	if reason := p.hidden(page); reason != "" {
		p.svc.logger.Info("skipping page", "route", route, "reason", reason)
		p.mu.Lock()
		p.result.Skipped++
		p.mu.Unlock()
		return nil
	}

	if page.Offset < 0 || page.Offset > int64(len(f.Contents)) {
		return fmt.Errorf("front matter offset %d out of range for %s", page.Offset, f.LogicalPath)
	}
	body, err := render.Markdown(f.Contents[page.Offset:])
	if err != nil {
		return fmt.Errorf("%s: %w", f.LogicalPath, err)
	}

	out := body
	if page.Template.Valid {
		rendered, err := p.templates.Render(page.Template.String, pageContext(page, route, body))
		if err != nil {
			return fmt.Errorf("%s: %w", f.LogicalPath, err)
		}
		out = []byte(rendered)
	}

	out, err = p.rewrite(route, out)
	if err != nil {
		return err
	}
	return p.write(dest, out, KindContent)
}

func (p *publishRun) publishFile(ctx context.Context, route string, f *sqlc.InputFile, dest string, kind Kind) error {
	if f.Contents != nil {
		out := f.Contents
		if isHTML(f.LogicalPath) {
			var err error
			if out, err = p.rewrite(route, out); err != nil {
				return err
			}
		}
		return p.write(dest, out, kind)
	}

	if err := p.copyContent(ctx, f, dest); err != nil {
		return err
	}
	p.published(kind)
	return nil
}

// copyContent streams the Content Store entry of f into a temporary file
// next to dest and renames it into place. dest is untouched on failure.
func (p *publishRun) copyContent(ctx context.Context, f *sqlc.InputFile, dest string) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".revsite-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", dest, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	key := hex.EncodeToString(f.ContentsHash)
	if err := p.svc.store.GetContent(ctx, key, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("copying %s: %w", f.LogicalPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("setting mode of %s: %w", dest, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("moving %s into place: %w", dest, err)
	}
	return nil
}

// hidden returns why a page is filtered out of this run, or "".
func (p *publishRun) hidden(page *sqlc.Page) string {
	switch {
	case page.Draft && !p.opts.Drafts:
		return "draft"
	case page.PublishDate.Valid && page.PublishDate.Time.After(p.now) && !p.opts.Future:
		return "future"
	case page.ExpiryDate.Valid && !page.ExpiryDate.Time.After(p.now) && !p.opts.Expired:
		return "expired"
	}
	return ""
}

func (p *publishRun) rewrite(route string, src []byte) ([]byte, error) {
	out, warnings, err := p.rewriter.Rewrite(route, src)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		p.svc.logger.Warn("unresolved link", "route", w.Route, "href", w.Href)
		p.svc.recorder.IncLinkWarning()
	}
	if len(warnings) > 0 {
		p.mu.Lock()
		p.result.Warnings = append(p.result.Warnings, warnings...)
		p.mu.Unlock()
	}
	return out, nil
}

func (p *publishRun) write(dest string, data []byte, kind Kind) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	p.published(kind)
	return nil
}

func (p *publishRun) published(kind Kind) {
	p.mu.Lock()
	p.result.Written++
	p.mu.Unlock()
	p.svc.recorder.IncRoutePublished(kind.String())
}

// loadTemplate returns the source of templates/<name> from the revision.
func (p *publishRun) loadTemplate(name string) (string, error) {
	f, ok := p.table.byLogicalPath["templates/"+name]
	if !ok {
		return "", fmt.Errorf("template %s is not part of revision %d", name, p.result.Revision.ID)
	}
	if f.Contents == nil {
		return "", fmt.Errorf("%w: %s", ErrNotInline, f.LogicalPath)
	}
	return string(f.Contents), nil
}

// pageContext is the data a page template is rendered with.
func pageContext(page *sqlc.Page, route string, body []byte) map[string]any {
	ctx := map[string]any{
		"content": render.SafeHTML(string(body)),
		"route":   route,
		"draft":   page.Draft,
	}
	for key, v := range map[string]sql.NullString{
		"title":       page.Title,
		"description": page.Description,
		"summary":     page.Summary,
		"excerpt":     page.Excerpt,
		"keywords":    page.Keywords,
	} {
		if v.Valid {
			ctx[key] = v.String
		}
	}
	for key, v := range map[string]sql.NullTime{
		"date":         page.Date,
		"publish_date": page.PublishDate,
		"expiry_date":  page.ExpiryDate,
	} {
		if v.Valid {
			ctx[key] = v.Time.Format(time.RFC3339)
		}
	}
	return ctx
}

// routeTable answers link lookups for one revision.
type routeTable struct {
	ctx   context.Context
	store ContentStore

	files         map[string]*sqlc.InputFile // input file id -> file
	routes        map[string]*sqlc.InputFile // route -> file
	byLogicalPath map[string]*sqlc.InputFile // logical path -> file
	routeOf       map[string]string          // logical path -> first route

	mu        sync.Mutex
	integrity map[string]string // route -> SRI value
}

func newRouteTable(ctx context.Context, store ContentStore, routes []*sqlc.Route, files []*sqlc.InputFile) *routeTable {
	t := &routeTable{
		ctx:           ctx,
		store:         store,
		files:         make(map[string]*sqlc.InputFile, len(files)),
		routes:        make(map[string]*sqlc.InputFile, len(routes)),
		byLogicalPath: make(map[string]*sqlc.InputFile, len(files)),
		routeOf:       make(map[string]string, len(routes)),
		integrity:     make(map[string]string),
	}
	for _, f := range files {
		t.files[f.ID] = f
		t.byLogicalPath[f.LogicalPath] = f
	}
	for _, r := range routes {
		f, ok := t.files[r.InputFileID]
		if !ok {
			continue
		}
		t.routes[r.Route] = f
		if _, seen := t.routeOf[f.LogicalPath]; !seen {
			t.routeOf[f.LogicalPath] = r.Route
		}
	}
	return t
}

// ResolveLink matches p against the routes first, then against logical
// paths as written and under each source directory.
func (t *routeTable) ResolveLink(p string) (string, bool) {
	if _, ok := t.routes[p]; ok {
		return p, true
	}
	for _, candidate := range []string{p, "assets/" + p, "content/" + p, "static/" + p} {
		if route, ok := t.routeOf[candidate]; ok {
			return route, true
		}
	}
	return "", false
}

// Integrity returns the SRI value of the input file published at route.
func (t *routeTable) Integrity(route string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if v, ok := t.integrity[route]; ok {
		return v, nil
	}

	f, ok := t.routes[route]
	if !ok {
		return "", fmt.Errorf("unknown route %s", route)
	}

	data := f.Contents
	if data == nil {
		var buf bytes.Buffer
		if err := t.store.GetContent(t.ctx, hex.EncodeToString(f.ContentsHash), &buf); err != nil {
			return "", err
		}
		data = buf.Bytes()
	}

	v := render.Integrity(data)
	t.integrity[route] = v
	return v, nil
}

var _ render.LinkResolver = (*routeTable)(nil)
