package services

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// NormalizeAccessURL extracts the signed URL from an access-url response.
// Backend versions answer with {"downloadUrl": ...}, {"url": ...}, a JSON
// string or plain text; all of them yield the bare URL. Anything that is not
// an absolute http(s) URL wraps ErrMalformedAccessURL.
func NormalizeAccessURL(payload []byte) (string, error) {
	s := strings.TrimSpace(string(payload))
	if s == "" {
		return "", fmt.Errorf("%w: empty response", ErrMalformedAccessURL)
	}

	candidate := s
	switch s[0] {
	case '{':
		var obj struct {
			DownloadURL string `json:"downloadUrl"`
			URL         string `json:"url"`
		}
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedAccessURL, err)
		}
		candidate = obj.DownloadURL
		if candidate == "" {
			candidate = obj.URL
		}
	case '"':
		if err := json.Unmarshal([]byte(s), &candidate); err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedAccessURL, err)
		}
	}

	candidate = strings.TrimSpace(candidate)
	u, err := url.Parse(candidate)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedAccessURL, truncate(candidate, 80))
	}
	return candidate, nil
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
