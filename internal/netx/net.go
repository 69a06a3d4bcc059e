// Package netx transfers file content through short-lived signed URLs.
// Signed URLs carry their own authorization, so no bearer token is sent.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody caps how much of a failed response is echoed into the error.
const maxErrorBody = 512

// DownloadFromPresignedURL streams the object behind url into w.
// A nil client means http.DefaultClient.
func DownloadFromPresignedURL(ctx context.Context, client *http.Client, url string, w io.Writer) (int64, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download interrupted after %d bytes: %w", n, err)
	}
	return n, nil
}
