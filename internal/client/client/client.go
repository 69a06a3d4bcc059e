package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/fileflow/internal/client/models"
)

// Client is the backend REST contract. Every call except Login, Register and
// Download takes the bearer token explicitly; the session manager, not the
// client, owns it.
type Client interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, userName, email, password string) (string, error)

	ListCategories(ctx context.Context, token string) ([]models.Category, error)
	CreateCategory(ctx context.Context, token, name string) (models.Category, error)
	DeleteCategory(ctx context.Context, token string, id int64) error

	ListDocumentsByCategory(ctx context.Context, token string, categoryID int64) ([]models.Document, error)
	GetDocument(ctx context.Context, token string, id int64) (models.Document, error)
	DeleteDocument(ctx context.Context, token string, id int64) error

	// GetAccessURL returns the raw signed-URL payload; its shape differs
	// between backend versions and is normalized by the caller.
	GetAccessURL(ctx context.Context, token, filePath string) ([]byte, error)

	UploadDocument(ctx context.Context, token string, req UploadRequest) (int64, error)
	TagDocument(ctx context.Context, token string, documentID int64) ([]string, error)

	// Download streams a signed URL into w.
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// UploadRequest is one multipart upload.
type UploadRequest struct {
	FileName   string
	Content    io.Reader
	CategoryID *int64
	AutoTag    bool
}
