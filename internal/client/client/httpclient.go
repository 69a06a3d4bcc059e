package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/fileflow/internal/client/models"
	"github.com/dmitrijs2005/fileflow/internal/common"
	"github.com/dmitrijs2005/fileflow/internal/logging"
	"github.com/dmitrijs2005/fileflow/internal/netx"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// AccessURLEndpoint selects which of the two signed-URL endpoints is used.
type AccessURLEndpoint string

const (
	// AccessURLPresigned is GET /api/documents/presigned-url?filePath=...
	AccessURLPresigned AccessURLEndpoint = "presigned"
	// AccessURLDownload is GET /api/documents/download-url?fileName=...
	AccessURLDownload AccessURLEndpoint = "download"
)

const (
	maxErrorBody     = 4 << 10
	maxAccessURLBody = 64 << 10
)

// HTTPClient implements Client over the backend's JSON REST API.
type HTTPClient struct {
	baseURL   *url.URL
	http      *http.Client
	transfer  *http.Client
	limiter   *rate.Limiter
	logger    logging.Logger
	accessURL AccessURLEndpoint
}

var _ Client = (*HTTPClient)(nil)

type Option func(*HTTPClient)

// WithTimeout bounds every API call. Uploads and downloads are not bounded.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

// WithHTTPClient replaces the client used for API calls and transfers.
func WithHTTPClient(h *http.Client) Option {
	return func(c *HTTPClient) {
		c.http = h
		c.transfer = h
	}
}

// WithRateLimit paces API calls to rps requests per second. rps <= 0
// disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

func WithAccessURLEndpoint(e AccessURLEndpoint) Option {
	return func(c *HTTPClient) { c.accessURL = e }
}

// NewHTTPClient builds a client for the backend at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be an absolute http(s) url", baseURL)
	}

	c := &HTTPClient{
		baseURL:   u,
		http:      &http.Client{Timeout: 30 * time.Second},
		transfer:  &http.Client{},
		limiter:   rate.NewLimiter(rate.Inf, 0),
		logger:    logging.NewNop(),
		accessURL: AccessURLPresigned,
	}
	for _, opt := range opts {
		opt(c)
	}

	switch c.accessURL {
	case AccessURLPresigned, AccessURLDownload:
	default:
		return nil, fmt.Errorf("unknown access url endpoint %q", c.accessURL)
	}

	return c, nil
}

type request struct {
	method      string
	path        string
	query       url.Values
	token       string
	body        io.Reader
	contentType string
	transfer    bool
}

func (c *HTTPClient) do(ctx context.Context, r request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL.JoinPath(r.path)
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), r.body)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+r.token)
	}

	hc := c.http
	if r.transfer {
		hc = c.transfer
	}

	started := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Debug(ctx, "request failed", "method", r.method, "path", r.path, "request_id", requestID, "err", err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, r.method, r.path, err)
	}

	c.logger.Debug(ctx, "request done",
		"method", r.method, "path", r.path, "status", resp.StatusCode,
		"request_id", requestID, "elapsed", time.Since(started))
	return resp, nil
}

func is2xx(code int) bool { return code >= 200 && code < 300 }

// doJSON sends in (if non-nil) as JSON and decodes the response into out (if
// non-nil). accept decides which status codes count as success.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, query url.Values, token string, in, out any, accept func(int) bool) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, request{method: method, path: path, query: query, token: token, body: body, contentType: contentType})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !accept(resp.StatusCode) {
		return statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrMalformedResponse, path, err)
	}
	return nil
}

// statusError builds a StatusError from a rejected response, picking up the
// backend's message when the body carries one.
func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Message string `json:"message"`
		Title   string `json:"title"`
	}
	msg := ""
	if json.Unmarshal(b, &payload) == nil {
		msg = payload.Message
		if msg == "" {
			msg = payload.Title
		}
	} else if s := strings.TrimSpace(string(b)); s != "" && !strings.HasPrefix(s, "<") {
		msg = s
	}

	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (t tokenResponse) validate() (string, error) {
	if t.Token == "" {
		return "", fmt.Errorf("%w: no token in response", ErrMalformedResponse)
	}
	return t.Token, nil
}

// Login exchanges credentials for a bearer token.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (string, error) {
	in := map[string]string{"email": email, "password": password}

	var out tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/users/login", nil, "", in, &out, is2xx); err != nil {
		return "", err
	}
	return out.validate()
}

// Register creates an account and returns the token issued for it.
func (c *HTTPClient) Register(ctx context.Context, userName, email, password string) (string, error) {
	in := map[string]string{"UserName": userName, "Email": email, "Password": password}

	var out tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/users/register", nil, "", in, &out, is2xx); err != nil {
		return "", err
	}
	return out.validate()
}

func (c *HTTPClient) ListCategories(ctx context.Context, token string) ([]models.Category, error) {
	var out []models.Category
	if err := c.doJSON(ctx, http.MethodGet, "/api/category", nil, token, nil, &out, is2xx); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreateCategory(ctx context.Context, token, name string) (models.Category, error) {
	var out models.Category
	if err := c.doJSON(ctx, http.MethodPost, "/api/category", nil, token, map[string]string{"name": name}, &out, is2xx); err != nil {
		return models.Category{}, err
	}
	if out.ID == 0 {
		return models.Category{}, fmt.Errorf("%w: created category has no id", ErrMalformedResponse)
	}
	return out, nil
}

// DeleteCategory succeeds on any 2xx. The backend removes the category's
// documents with it.
func (c *HTTPClient) DeleteCategory(ctx context.Context, token string, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/category/"+strconv.FormatInt(id, 10), nil, token, nil, nil, is2xx)
}

func (c *HTTPClient) ListDocumentsByCategory(ctx context.Context, token string, categoryID int64) ([]models.Document, error) {
	var out []models.Document
	path := "/api/documents/by-category/" + strconv.FormatInt(categoryID, 10)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, token, nil, &out, is2xx); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetDocument(ctx context.Context, token string, id int64) (models.Document, error) {
	var out models.Document
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents/"+strconv.FormatInt(id, 10), nil, token, nil, &out, is2xx); err != nil {
		return models.Document{}, err
	}
	return out, nil
}

// DeleteDocument treats only 200 and 204 as success; any other status,
// including other 2xx codes, is returned as a *StatusError.
func (c *HTTPClient) DeleteDocument(ctx context.Context, token string, id int64) error {
	accept := func(code int) bool { return code == http.StatusOK || code == http.StatusNoContent }
	return c.doJSON(ctx, http.MethodDelete, "/api/documents/"+strconv.FormatInt(id, 10), nil, token, nil, nil, accept)
}

func (c *HTTPClient) GetAccessURL(ctx context.Context, token, filePath string) ([]byte, error) {
	path, query := "/api/documents/presigned-url", url.Values{"filePath": {filePath}}
	if c.accessURL == AccessURLDownload {
		path, query = "/api/documents/download-url", url.Values{"fileName": {filePath}}
	}

	resp, err := c.do(ctx, request{method: http.MethodGet, path: path, query: query, token: token})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		return nil, statusError(resp)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxAccessURLBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, path, err)
	}
	return b, nil
}

// UploadDocument streams a multipart form with the fields File, CategoryId
// and UseAutoTagging, and returns the new document id.
func (c *HTTPClient) UploadDocument(ctx context.Context, token string, up UploadRequest) (int64, error) {
	pr, pw := io.Pipe()
	defer pr.Close()

	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, up))
	}()

	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/documents/upload",
		token:       token,
		body:        pr,
		contentType: mw.FormDataContentType(),
		transfer:    true,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		return 0, statusError(resp)
	}

	var out struct {
		DocumentID int64 `json:"documentId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: decode upload response: %w", ErrMalformedResponse, err)
	}
	return out.DocumentID, nil
}

func writeUploadForm(mw *multipart.Writer, up UploadRequest) error {
	part, err := mw.CreateFormFile("File", up.FileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, up.Content); err != nil {
		return err
	}
	if up.CategoryID != nil {
		if err := mw.WriteField("CategoryId", strconv.FormatInt(*up.CategoryID, 10)); err != nil {
			return err
		}
	}
	if err := mw.WriteField("UseAutoTagging", strconv.FormatBool(up.AutoTag)); err != nil {
		return err
	}
	return mw.Close()
}

// TagDocument asks the backend's classifier for tags.
func (c *HTTPClient) TagDocument(ctx context.Context, token string, documentID int64) ([]string, error) {
	var out struct {
		Tags []string `json:"tags"`
	}
	in := map[string]int64{"documentId": documentID}
	if err := c.doJSON(ctx, http.MethodPost, "/api/ai/tag-document", nil, token, in, &out, is2xx); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

func (c *HTTPClient) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	return netx.DownloadFromPresignedURL(ctx, c.transfer, url, w)
}
