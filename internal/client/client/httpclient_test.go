package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fake backend ----

const testToken = "tok-123"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newBackend(t *testing.T, mount func(r chi.Router)) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	mount(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *HTTPClient {
	t.Helper()
	c, err := NewHTTPClient(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

// ---- construction ----

func TestNewHTTPClient_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:7079", "ftp://host", "/relative"} {
		_, err := NewHTTPClient(raw)
		assert.Error(t, err, raw)
	}
}

func TestNewHTTPClient_RejectsUnknownAccessEndpoint(t *testing.T) {
	_, err := NewHTTPClient("http://localhost", WithAccessURLEndpoint("s3"))
	require.Error(t, err)
}

// ---- auth ----

func TestLogin_ReturnsToken(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Post("/api/users/login", func(w http.ResponseWriter, r *http.Request) {
			var in map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "ann@example.com", in["email"])
			assert.Equal(t, "pw", in["password"])
			assert.Empty(t, r.Header.Get("Authorization"))
			assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
			writeJSON(w, http.StatusOK, map[string]string{"token": testToken})
		})
	})

	tok, err := newTestClient(t, srv).Login(context.Background(), "ann@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, testToken, tok)
}

func TestLogin_RejectedCredentials(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Post("/api/users/login", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		})
	})

	_, err := newTestClient(t, srv).Login(context.Background(), "a@b.c", "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Invalid credentials", se.Message)
}

func TestLogin_MissingTokenIsMalformed(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Post("/api/users/login", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{})
		})
	})

	_, err := newTestClient(t, srv).Login(context.Background(), "a@b.c", "pw")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRegister_SendsPascalCaseFields(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Post("/api/users/register", func(w http.ResponseWriter, r *http.Request) {
			var in map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, map[string]string{"UserName": "ann", "Email": "ann@example.com", "Password": "pw"}, in)
			writeJSON(w, http.StatusOK, map[string]string{"token": testToken})
		})
	})

	tok, err := newTestClient(t, srv).Register(context.Background(), "ann", "ann@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, testToken, tok)
}

func TestRegister_ProblemDetailsTitle(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Post("/api/users/register", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"title": "One or more validation errors occurred.", "status": 400})
		})
	})

	_, err := newTestClient(t, srv).Register(context.Background(), "", "", "")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, err.Error(), "validation errors")
}

// ---- categories and documents ----

func TestCategories_ListCreateDelete(t *testing.T) {
	var deleted atomic.Int64
	srv := newBackend(t, func(r chi.Router) {
		r.Use(requireBearer)
		r.Get("/api/category", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "name": "Invoices"}, {"id": 2, "name": "Photos"}})
		})
		r.Post("/api/category", func(w http.ResponseWriter, r *http.Request) {
			var in map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			writeJSON(w, http.StatusCreated, map[string]any{"id": 3, "name": in["name"]})
		})
		r.Delete("/api/category/{id}", func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, "id") == "3" {
				deleted.Add(1)
			}
			w.WriteHeader(http.StatusAccepted)
		})
	})
	c := newTestClient(t, srv)
	ctx := context.Background()

	cats, err := c.ListCategories(ctx, testToken)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Photos", cats[1].Name)

	created, err := c.CreateCategory(ctx, testToken, "Receipts")
	require.NoError(t, err)
	assert.Equal(t, int64(3), created.ID)
	assert.Equal(t, "Receipts", created.Name)

	require.NoError(t, c.DeleteCategory(ctx, testToken, 3), "any 2xx deletes a category")
	assert.Equal(t, int64(1), deleted.Load())
}

func TestListCategories_Unauthorized(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Use(requireBearer)
		r.Get("/api/category", func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not be reached")
		})
	})

	_, err := newTestClient(t, srv).ListCategories(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestListDocumentsByCategory(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Use(requireBearer)
		r.Get("/api/documents/by-category/{id}", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "5", chi.URLParam(r, "id"))
			_, _ = io.WriteString(w, `[{"id":10,"title":"scan","contentType":"image/png","uploadedAt":"2025-01-01T00:00:00Z","filePath":"a/b.png"}]`)
		})
	})

	docs, err := newTestClient(t, srv).ListDocumentsByCategory(context.Background(), testToken, 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a/b.png", docs[0].FilePath)
	assert.Equal(t, "image", docs[0].Kind())
}

func TestListDocumentsByCategory_MalformedBody(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Get("/api/documents/by-category/{id}", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<html>oops</html>`)
		})
	})

	_, err := newTestClient(t, srv).ListDocumentsByCategory(context.Background(), testToken, 1)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGetDocument_NotFound(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Get("/api/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	})

	_, err := newTestClient(t, srv).GetDocument(context.Background(), testToken, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetDocument_ForbiddenIsNotUnauthorized(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Get("/api/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "not your document"})
		})
	})

	_, err := newTestClient(t, srv).GetDocument(context.Background(), testToken, 7)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrNotFound)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, "not your document", se.Message)
}

func TestDeleteDocument_AcceptsOnly200And204(t *testing.T) {
	tests := []struct {
		status  int
		wantErr bool
	}{
		{http.StatusOK, false},
		{http.StatusNoContent, false},
		{http.StatusAccepted, true},
		{http.StatusNotFound, true},
		{http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := newBackend(t, func(r chi.Router) {
				r.Delete("/api/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
				})
			})

			err := newTestClient(t, srv).DeleteDocument(context.Background(), testToken, 1)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.StatusCode)
		})
	}
}

// ---- access urls ----

func TestGetAccessURL_Endpoints(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Get("/api/documents/presigned-url", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"url":"https://s3/`+r.URL.Query().Get("filePath")+`"}`)
		})
		r.Get("/api/documents/download-url", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `https://s3/`+r.URL.Query().Get("fileName"))
		})
	})
	ctx := context.Background()

	b, err := newTestClient(t, srv).GetAccessURL(ctx, testToken, "users/1/a b.pdf")
	require.NoError(t, err)
	assert.Equal(t, `{"url":"https://s3/users/1/a b.pdf"}`, string(b))

	b, err = newTestClient(t, srv, WithAccessURLEndpoint(AccessURLDownload)).GetAccessURL(ctx, testToken, "x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://s3/x.pdf", string(b))
}

// ---- upload, tagging, download ----

func TestUploadDocument_Multipart(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Use(requireBearer)
		r.Post("/api/documents/upload", func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))

			f, hdr, err := r.FormFile("File")
			require.NoError(t, err)
			defer f.Close()
			body, _ := io.ReadAll(f)

			assert.Equal(t, "notes.txt", hdr.Filename)
			assert.Equal(t, "hello", string(body))
			assert.Equal(t, "4", r.FormValue("CategoryId"))
			assert.Equal(t, "true", r.FormValue("UseAutoTagging"))

			writeJSON(w, http.StatusOK, map[string]int64{"documentId": 77})
		})
	})

	cat := int64(4)
	id, err := newTestClient(t, srv).UploadDocument(context.Background(), testToken, UploadRequest{
		FileName:   "notes.txt",
		Content:    strings.NewReader("hello"),
		CategoryID: &cat,
		AutoTag:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
}

func TestUploadDocument_WithoutCategory(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Post("/api/documents/upload", func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, present := r.MultipartForm.Value["CategoryId"]
			assert.False(t, present)
			assert.Equal(t, "false", r.FormValue("UseAutoTagging"))
			writeJSON(w, http.StatusOK, map[string]int64{"documentId": 1})
		})
	})

	_, err := newTestClient(t, srv).UploadDocument(context.Background(), testToken, UploadRequest{
		FileName: "a.bin",
		Content:  bytes.NewReader([]byte{1, 2, 3}),
	})
	require.NoError(t, err)
}

func TestUploadDocument_ServerRejects(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Post("/api/documents/upload", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"message": "too big"})
		})
	})

	_, err := newTestClient(t, srv).UploadDocument(context.Background(), testToken, UploadRequest{
		FileName: "a.bin",
		Content:  strings.NewReader("x"),
	})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "too big", se.Message)
}

func TestTagDocument(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Post("/api/ai/tag-document", func(w http.ResponseWriter, r *http.Request) {
			var in map[string]int64
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, int64(77), in["documentId"])
			writeJSON(w, http.StatusOK, map[string]any{"tags": []string{"invoice", "2025"}})
		})
	})

	tags, err := newTestClient(t, srv).TagDocument(context.Background(), testToken, 77)
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice", "2025"}, tags)
}

func TestDownload_DoesNotSendBearer(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Get("/blob", func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, "payload")
		})
	})

	var buf bytes.Buffer
	n, err := newTestClient(t, srv).Download(context.Background(), srv.URL+"/blob", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "payload", buf.String())
}

// ---- transport ----

func TestDo_UnreachableServerIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = c.ListCategories(context.Background(), testToken)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDo_RateLimitHonorsContext(t *testing.T) {
	srv := newBackend(t, func(r chi.Router) {
		r.Get("/api/category", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []any{})
		})
	})
	c := newTestClient(t, srv, WithRateLimit(0.001, 1))

	_, err := c.ListCategories(context.Background(), testToken)
	require.NoError(t, err, "first call uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.ListCategories(ctx, testToken)
	require.Error(t, err)
}
