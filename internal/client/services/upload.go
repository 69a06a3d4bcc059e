package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/fileflow/internal/client/client"
	"github.com/dmitrijs2005/fileflow/internal/logging"
)

// UploadResult describes a finished upload. TagErr is set when the upload
// went through but tagging did not; the document exists either way.
type UploadResult struct {
	DocumentID int64
	Tags       []string
	TagErr     error
}

// Uploader sends local files to the backend and optionally has them tagged.
type Uploader struct {
	client client.Client
	tokens TokenSource
	prefs  *Preferences
	logger logging.Logger
}

func NewUploader(c client.Client, tokens TokenSource, prefs *Preferences, logger logging.Logger) *Uploader {
	return &Uploader{client: c, tokens: tokens, prefs: prefs, logger: logger}
}

// Upload sends the file at path, into categoryID when set. autoTag nil means
// the autoClassify preference decides.
func (u *Uploader) Upload(ctx context.Context, path string, categoryID *int64, autoTag *bool) (UploadResult, error) {
	token, ok := u.tokens.CurrentToken(ctx)
	if !ok {
		return UploadResult{}, ErrAuthRequired
	}

	tag := false
	if autoTag != nil {
		tag = *autoTag
	} else if u.prefs != nil {
		v, err := u.prefs.AutoClassify(ctx)
		if err != nil {
			u.logger.Warn(ctx, "read autoClassify preference", "err", err)
		}
		tag = v
	}

	f, err := os.Open(path)
	if err != nil {
		return UploadResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return UploadResult{}, fmt.Errorf("%s is a directory", path)
	}

	id, err := u.client.UploadDocument(ctx, token, client.UploadRequest{
		FileName:   filepath.Base(path),
		Content:    f,
		CategoryID: categoryID,
		AutoTag:    tag,
	})
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			if cerr := u.tokens.Clear(ctx); cerr != nil {
				u.logger.Error(ctx, "clear session", "err", cerr)
			}
			return UploadResult{}, fmt.Errorf("upload: %w: %w", ErrAuthRequired, err)
		}
		return UploadResult{}, fmt.Errorf("upload: %w", err)
	}

	res := UploadResult{DocumentID: id}
	u.logger.Info(ctx, "document uploaded", "document_id", id, "bytes", info.Size())

	if !tag || id == 0 {
		return res, nil
	}

	tags, err := u.client.TagDocument(ctx, token, id)
	if err != nil {
		u.logger.Warn(ctx, "auto-tagging failed", "document_id", id, "err", err)
		res.TagErr = err
		return res, nil
	}
	res.Tags = tags
	return res, nil
}
