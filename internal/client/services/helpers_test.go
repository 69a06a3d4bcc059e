package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fileflow/internal/client/client"
	"github.com/dmitrijs2005/fileflow/internal/client/models"
	"github.com/dmitrijs2005/fileflow/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "fileflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func getMeta(t *testing.T, db *sql.DB, k string) ([]byte, bool) {
	t.Helper()
	var v []byte
	err := db.QueryRow(`SELECT value FROM metadata WHERE key=?`, k).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	require.NoError(t, err)
	return v, true
}

func insertMeta(t *testing.T, db *sql.DB, k string, v []byte) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO metadata(key,value) VALUES(?,?)`, k, v)
	require.NoError(t, err)
}

const (
	xmlNameClaim  = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
	xmlEmailClaim = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
)

func makeToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return s
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ---- fake token source ----

type staticTokens struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (s *staticTokens) CurrentToken(context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *staticTokens) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.cleared++
	return nil
}

// ---- fake client ----

// fakeClient implements client.Client. Unset funcs fail the call.
type fakeClient struct {
	mu    sync.Mutex
	calls []string

	LoginFn                   func(email, password string) (string, error)
	RegisterFn                func(userName, email, password string) (string, error)
	ListCategoriesFn          func() ([]models.Category, error)
	CreateCategoryFn          func(name string) (models.Category, error)
	DeleteCategoryFn          func(id int64) error
	ListDocumentsByCategoryFn func(ctx context.Context, categoryID int64) ([]models.Document, error)
	GetDocumentFn             func(id int64) (models.Document, error)
	DeleteDocumentFn          func(id int64) error
	GetAccessURLFn            func(filePath string) ([]byte, error)
	UploadDocumentFn          func(req client.UploadRequest) (int64, error)
	TagDocumentFn             func(documentID int64) ([]string, error)
	DownloadFn                func(url string, w io.Writer) (int64, error)
}

var _ client.Client = (*fakeClient)(nil)

var errNotStubbed = errors.New("not stubbed")

func (f *fakeClient) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) Login(_ context.Context, email, password string) (string, error) {
	f.record("Login")
	if f.LoginFn == nil {
		return "", errNotStubbed
	}
	return f.LoginFn(email, password)
}

func (f *fakeClient) Register(_ context.Context, userName, email, password string) (string, error) {
	f.record("Register")
	if f.RegisterFn == nil {
		return "", errNotStubbed
	}
	return f.RegisterFn(userName, email, password)
}

func (f *fakeClient) ListCategories(context.Context, string) ([]models.Category, error) {
	f.record("ListCategories")
	if f.ListCategoriesFn == nil {
		return nil, errNotStubbed
	}
	return f.ListCategoriesFn()
}

func (f *fakeClient) CreateCategory(_ context.Context, _ string, name string) (models.Category, error) {
	f.record("CreateCategory")
	if f.CreateCategoryFn == nil {
		return models.Category{}, errNotStubbed
	}
	return f.CreateCategoryFn(name)
}

func (f *fakeClient) DeleteCategory(_ context.Context, _ string, id int64) error {
	f.record("DeleteCategory")
	if f.DeleteCategoryFn == nil {
		return errNotStubbed
	}
	return f.DeleteCategoryFn(id)
}

func (f *fakeClient) ListDocumentsByCategory(ctx context.Context, _ string, categoryID int64) ([]models.Document, error) {
	f.record("ListDocumentsByCategory")
	if f.ListDocumentsByCategoryFn == nil {
		return nil, errNotStubbed
	}
	return f.ListDocumentsByCategoryFn(ctx, categoryID)
}

func (f *fakeClient) GetDocument(_ context.Context, _ string, id int64) (models.Document, error) {
	f.record("GetDocument")
	if f.GetDocumentFn == nil {
		return models.Document{}, errNotStubbed
	}
	return f.GetDocumentFn(id)
}

func (f *fakeClient) DeleteDocument(_ context.Context, _ string, id int64) error {
	f.record("DeleteDocument")
	if f.DeleteDocumentFn == nil {
		return errNotStubbed
	}
	return f.DeleteDocumentFn(id)
}

func (f *fakeClient) GetAccessURL(_ context.Context, _ string, filePath string) ([]byte, error) {
	f.record("GetAccessURL")
	if f.GetAccessURLFn == nil {
		return nil, errNotStubbed
	}
	return f.GetAccessURLFn(filePath)
}

func (f *fakeClient) UploadDocument(_ context.Context, _ string, req client.UploadRequest) (int64, error) {
	f.record("UploadDocument")
	if f.UploadDocumentFn == nil {
		return 0, errNotStubbed
	}
	return f.UploadDocumentFn(req)
}

func (f *fakeClient) TagDocument(_ context.Context, _ string, documentID int64) ([]string, error) {
	f.record("TagDocument")
	if f.TagDocumentFn == nil {
		return nil, errNotStubbed
	}
	return f.TagDocumentFn(documentID)
}

func (f *fakeClient) Download(_ context.Context, url string, w io.Writer) (int64, error) {
	f.record("Download")
	if f.DownloadFn == nil {
		return 0, errNotStubbed
	}
	return f.DownloadFn(url, w)
}

func nopLogger() logging.Logger { return logging.NewNop() }
