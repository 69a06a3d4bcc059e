package models

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Category groups documents. IDs are assigned by the backend.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Document is one stored file as listed by the backend.
//
// CategoryID and CategoryName are not part of the by-category payload; they
// are filled in when the catalog is merged.
type Document struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	ContentType string    `json:"contentType"`
	UploadedAt  Timestamp `json:"uploadedAt"`
	FilePath    string    `json:"filePath"`

	CategoryID   int64  `json:"categoryId,omitempty"`
	CategoryName string `json:"categoryName,omitempty"`
}

// Kind is a short label derived from ContentType, used for display.
func (d Document) Kind() string {
	ct := strings.ToLower(d.ContentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return "pdf"
	case strings.HasPrefix(ct, "image/"):
		return "image"
	case strings.Contains(ct, "word"):
		return "word"
	case strings.Contains(ct, "excel"), strings.Contains(ct, "spreadsheet"):
		return "excel"
	default:
		return "file"
	}
}

// Timestamp decodes the backend's upload times. RFC 3339 is tried first,
// then the zone-less layouts ASP.NET emits for unspecified DateTime kinds,
// which are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339Nano) + `"`), nil
}
