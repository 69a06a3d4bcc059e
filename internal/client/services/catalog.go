package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/fileflow/internal/client/client"
	"github.com/dmitrijs2005/fileflow/internal/client/models"
	"github.com/dmitrijs2005/fileflow/internal/filex"
	"github.com/dmitrijs2005/fileflow/internal/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchConcurrency matches the usual per-host connection limit.
const DefaultFetchConcurrency = 6

// Confirmation prompts. The category prompts differ so that deleting a
// non-empty category, which cascades on the backend, is never confirmed
// by accident.
const (
	ConfirmDeleteEmptyCategory    = "Delete category %q?"
	ConfirmDeleteNonEmptyCategory = "Category %q contains %d document(s) which will be deleted with it. Delete anyway?"
	ConfirmDeleteDocument         = "Delete document %q?"
)

type CatalogState int

const (
	StateIdle CatalogState = iota
	StateLoading
	StateReady
	StateFailed
)

func (s CatalogState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("CatalogState(%d)", int(s))
}

// TokenSource provides the bearer token for backend calls. Clear is called
// when the backend rejects the token.
type TokenSource interface {
	CurrentToken(ctx context.Context) (string, bool)
	Clear(ctx context.Context) error
}

// Confirmer asks the user to approve a destructive action.
type Confirmer func(prompt string) bool

// CategoryFilter restricts a catalog view to one category or none.
type CategoryFilter struct {
	all bool
	id  int64
}

var AllCategories = CategoryFilter{all: true}

func ByCategory(id int64) CategoryFilter { return CategoryFilter{id: id} }

func (f CategoryFilter) Matches(d models.Document) bool {
	return f.all || d.CategoryID == f.id
}

// FilterDocuments returns the documents whose title contains term (case
// insensitive) and whose category passes filter, in their original order.
// The result is never nil and never aliases docs.
func FilterDocuments(docs []models.Document, term string, filter CategoryFilter) []models.Document {
	term = strings.ToLower(term)
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if !filter.Matches(d) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(d.Title), term) {
			continue
		}
		out = append(out, d)
	}
	return out
}

type CatalogOption func(*CatalogAggregator)

// WithFetchConcurrency bounds the per-category fan-out. n < 1 means
// DefaultFetchConcurrency.
func WithFetchConcurrency(n int) CatalogOption {
	return func(a *CatalogAggregator) {
		if n < 1 {
			n = DefaultFetchConcurrency
		}
		a.limit = n
	}
}

// WithCategoryTimeout bounds each per-category request. Zero means no bound
// beyond the caller's context.
func WithCategoryTimeout(d time.Duration) CatalogOption {
	return func(a *CatalogAggregator) { a.categoryTimeout = d }
}

// CatalogAggregator assembles the document catalog from the backend's
// category-scoped listings and owns it. It is the only writer of catalog
// state.
type CatalogAggregator struct {
	client          client.Client
	tokens          TokenSource
	logger          logging.Logger
	limit           int
	categoryTimeout time.Duration

	mu         sync.RWMutex
	state      CatalogState
	inflight   int
	lastErr    error
	categories []models.Category
	documents  []models.Document
}

func NewCatalogAggregator(c client.Client, tokens TokenSource, logger logging.Logger, opts ...CatalogOption) *CatalogAggregator {
	a := &CatalogAggregator{
		client: c,
		tokens: tokens,
		logger: logger,
		limit:  DefaultFetchConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LoadCatalog fetches the categories, then every category's documents
// concurrently, and replaces the catalog with the merged result.
//
// A failed per-category request is logged and contributes no documents;
// the load still succeeds, whatever the status. Only a missing token or a
// failed category listing fail the load; a 401 on the listing also signs
// the user out.
func (a *CatalogAggregator) LoadCatalog(ctx context.Context) error {
	a.mu.Lock()
	a.inflight++
	a.state = StateLoading
	a.mu.Unlock()

	started := time.Now()
	categories, documents, err := a.fetch(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.inflight--
	if err != nil {
		a.lastErr = err
		if errors.Is(err, ErrAuthRequired) {
			a.categories, a.documents = nil, nil
		}
		if a.inflight == 0 {
			a.state = StateFailed
		}
		a.logger.Error(ctx, "catalog load failed", "err", err)
		return err
	}

	a.categories, a.documents, a.lastErr = categories, documents, nil
	if a.inflight == 0 {
		a.state = StateReady
	}
	a.logger.Info(ctx, "catalog loaded",
		"categories", len(categories), "documents", len(documents), "elapsed", time.Since(started))
	return nil
}

func (a *CatalogAggregator) fetch(ctx context.Context) ([]models.Category, []models.Document, error) {
	token, ok := a.tokens.CurrentToken(ctx)
	if !ok {
		return nil, nil, ErrAuthRequired
	}

	categories, err := a.client.ListCategories(ctx, token)
	if err != nil {
		return nil, nil, a.backendError(ctx, "list categories", err)
	}

	perCategory := make([][]models.Document, len(categories))

	var g errgroup.Group
	g.SetLimit(a.limit)

	for i, c := range categories {
		g.Go(func() error {
			cctx := ctx
			if a.categoryTimeout > 0 {
				var cancel context.CancelFunc
				cctx, cancel = context.WithTimeout(ctx, a.categoryTimeout)
				defer cancel()
			}

			docs, err := a.client.ListDocumentsByCategory(cctx, token, c.ID)
			if err != nil {
				a.logger.Warn(ctx, "category documents unavailable", "category_id", c.ID, "category", c.Name, "err", err)
				return nil
			}

			for j := range docs {
				docs[j].CategoryID = c.ID
				docs[j].CategoryName = c.Name
			}
			perCategory[i] = docs
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}

	n := 0
	for _, docs := range perCategory {
		n += len(docs)
	}
	documents := make([]models.Document, 0, n)
	for _, docs := range perCategory {
		documents = append(documents, docs...)
	}

	if categories == nil {
		categories = []models.Category{}
	}
	return categories, documents, nil
}

// backendError wraps err for op. A rejected token clears the session and is
// reported as ErrAuthRequired.
func (a *CatalogAggregator) backendError(ctx context.Context, op string, err error) error {
	if !errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("%s: %w", op, err)
	}

	a.logger.Warn(ctx, "backend rejected token, signing out", "op", op)
	if cerr := a.tokens.Clear(ctx); cerr != nil {
		a.logger.Error(ctx, "clear session", "err", cerr)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrAuthRequired, err)
}

func (a *CatalogAggregator) signedOut(err error) {
	if !errors.Is(err, ErrAuthRequired) {
		return
	}
	a.mu.Lock()
	a.state, a.lastErr = StateFailed, err
	a.categories, a.documents = nil, nil
	a.mu.Unlock()
}

func (a *CatalogAggregator) token(ctx context.Context) (string, error) {
	token, ok := a.tokens.CurrentToken(ctx)
	if !ok {
		return "", ErrAuthRequired
	}
	return token, nil
}

// Filter applies FilterDocuments to the current catalog.
func (a *CatalogAggregator) Filter(term string, filter CategoryFilter) []models.Document {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return FilterDocuments(a.documents, term, filter)
}

// AddCategory creates a category and appends it, with no documents, to the
// local state. Blank names are rejected without a backend call.
func (a *CatalogAggregator) AddCategory(ctx context.Context, name string) (models.Category, error) {
	if err := a.requireReady(); err != nil {
		return models.Category{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, ErrEmptyCategoryName
	}

	token, err := a.token(ctx)
	if err != nil {
		return models.Category{}, err
	}

	created, err := a.client.CreateCategory(ctx, token, name)
	if err != nil {
		err = a.backendError(ctx, "create category", err)
		a.signedOut(err)
		return models.Category{}, err
	}

	a.mu.Lock()
	categories := make([]models.Category, 0, len(a.categories)+1)
	a.categories = append(append(categories, a.categories...), created)
	a.mu.Unlock()

	a.logger.Info(ctx, "category created", "category_id", created.ID, "category", created.Name)
	return created, nil
}

// DeleteCategory deletes a category after confirm approves it. The backend
// deletes the category's documents too, so on success they leave the
// catalog together with the category.
func (a *CatalogAggregator) DeleteCategory(ctx context.Context, id int64, confirm Confirmer) error {
	a.mu.RLock()
	state := a.state
	var (
		found bool
		name  string
		count int
	)
	for _, c := range a.categories {
		if c.ID == id {
			found, name = true, c.Name
			break
		}
	}
	for _, d := range a.documents {
		if d.CategoryID == id {
			count++
		}
	}
	a.mu.RUnlock()

	if state != StateReady {
		return fmt.Errorf("%w (%s)", ErrCatalogNotReady, state)
	}
	if !found {
		return fmt.Errorf("%w: %d", ErrCategoryNotFound, id)
	}

	prompt := fmt.Sprintf(ConfirmDeleteEmptyCategory, name)
	if count > 0 {
		prompt = fmt.Sprintf(ConfirmDeleteNonEmptyCategory, name, count)
	}
	if confirm == nil || !confirm(prompt) {
		return ErrNotConfirmed
	}

	token, err := a.token(ctx)
	if err != nil {
		return err
	}

	if err := a.client.DeleteCategory(ctx, token, id); err != nil {
		err = a.backendError(ctx, "delete category", err)
		a.signedOut(err)
		return err
	}

	a.mu.Lock()
	categories := make([]models.Category, 0, len(a.categories))
	for _, c := range a.categories {
		if c.ID != id {
			categories = append(categories, c)
		}
	}
	documents := make([]models.Document, 0, len(a.documents))
	for _, d := range a.documents {
		if d.CategoryID != id {
			documents = append(documents, d)
		}
	}
	a.categories, a.documents = categories, documents
	a.mu.Unlock()

	a.logger.Info(ctx, "category deleted", "category_id", id, "documents", count)
	return nil
}

// DeleteDocument deletes a document after confirm approves it. The catalog
// changes only once the backend has confirmed the deletion.
func (a *CatalogAggregator) DeleteDocument(ctx context.Context, id int64, confirm Confirmer) error {
	if err := a.requireReady(); err != nil {
		return err
	}

	doc, ok := a.Document(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrDocumentNotFound, id)
	}

	if confirm == nil || !confirm(fmt.Sprintf(ConfirmDeleteDocument, doc.Title)) {
		return ErrNotConfirmed
	}

	token, err := a.token(ctx)
	if err != nil {
		return err
	}

	if err := a.client.DeleteDocument(ctx, token, id); err != nil {
		err = a.backendError(ctx, "delete document", err)
		a.signedOut(err)
		return err
	}

	a.mu.Lock()
	documents := make([]models.Document, 0, len(a.documents))
	for _, d := range a.documents {
		if d.ID != id {
			documents = append(documents, d)
		}
	}
	a.documents = documents
	a.mu.Unlock()

	a.logger.Info(ctx, "document deleted", "document_id", id)
	return nil
}

// ResolveAccessURL obtains a short-lived URL for the object at filePath.
// Every failure is reported as an error wrapping ErrAuthRequired,
// ErrAccessURLUnavailable or ErrMalformedAccessURL.
func (a *CatalogAggregator) ResolveAccessURL(ctx context.Context, filePath string) (string, error) {
	token, err := a.token(ctx)
	if err != nil {
		return "", err
	}

	raw, err := a.client.GetAccessURL(ctx, token, filePath)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			err = a.backendError(ctx, "resolve access url", err)
			a.signedOut(err)
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrAccessURLUnavailable, err)
	}

	return NormalizeAccessURL(raw)
}

// DownloadDocument saves doc into dir under its sanitized title and
// returns the final path. Nothing is left in dir when the transfer fails.
func (a *CatalogAggregator) DownloadDocument(ctx context.Context, doc models.Document, dir string) (string, error) {
	u, err := a.ResolveAccessURL(ctx, doc.FilePath)
	if err != nil {
		return "", err
	}

	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return "", err
	}

	name := filex.SanitizeFileName(doc.Title, fmt.Sprintf("document-%d", doc.ID))

	var size int64
	path, err := filex.SaveAs(abs, name, func(w io.Writer) error {
		n, err := a.client.Download(ctx, u, w)
		size = n
		return err
	})
	if err != nil {
		return "", fmt.Errorf("download %q: %w", doc.Title, err)
	}

	a.logger.Info(ctx, "document downloaded", "document_id", doc.ID, "path", path, "bytes", size)
	return path, nil
}

// FetchDocument reads one document from the backend. Category fields are
// taken from the catalog when the document is known there.
func (a *CatalogAggregator) FetchDocument(ctx context.Context, id int64) (models.Document, error) {
	token, err := a.token(ctx)
	if err != nil {
		return models.Document{}, err
	}

	doc, err := a.client.GetDocument(ctx, token, id)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return models.Document{}, fmt.Errorf("%w: %d", ErrDocumentNotFound, id)
		}
		err = a.backendError(ctx, "get document", err)
		a.signedOut(err)
		return models.Document{}, err
	}

	if known, ok := a.Document(id); ok {
		doc.CategoryID, doc.CategoryName = known.CategoryID, known.CategoryName
	}
	return doc, nil
}

// Document looks a document up in the catalog.
func (a *CatalogAggregator) Document(id int64) (models.Document, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, d := range a.documents {
		if d.ID == id {
			return d, true
		}
	}
	return models.Document{}, false
}

func (a *CatalogAggregator) Categories() []models.Category {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.Category(nil), a.categories...)
}

// Catalog returns a copy of the merged document list.
func (a *CatalogAggregator) Catalog() []models.Document {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.Document(nil), a.documents...)
}

func (a *CatalogAggregator) State() CatalogState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// LastError is the error of the most recent failed load, or nil.
func (a *CatalogAggregator) LastError() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastErr
}

// Reset drops the catalog and returns to Idle, e.g. after logout.
func (a *CatalogAggregator) Reset() {
	a.mu.Lock()
	a.state, a.lastErr = StateIdle, nil
	a.categories, a.documents = nil, nil
	a.mu.Unlock()
}

func (a *CatalogAggregator) requireReady() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.state != StateReady {
		return fmt.Errorf("%w (%s)", ErrCatalogNotReady, a.state)
	}
	return nil
}
