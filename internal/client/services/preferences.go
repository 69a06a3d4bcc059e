package services

import (
	"context"
	"strconv"

	"github.com/dmitrijs2005/fileflow/internal/client/repositories/metadata"
)

// Preference keys. They live next to the session keys but survive logout.
const (
	KeyDarkMode     = "darkMode"
	KeyAutoClassify = "autoClassify"
)

// Preferences reads and writes the user's boolean settings. Values are
// stored as "true"/"false"; anything else, including absence, reads false.
type Preferences struct {
	repo metadata.Repository
}

func NewPreferences(repo metadata.Repository) *Preferences {
	return &Preferences{repo: repo}
}

func (p *Preferences) get(ctx context.Context, key string) (bool, error) {
	v, err := p.repo.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return string(v) == "true", nil
}

func (p *Preferences) set(ctx context.Context, key string, v bool) error {
	return p.repo.Set(ctx, key, []byte(strconv.FormatBool(v)))
}

func (p *Preferences) DarkMode(ctx context.Context) (bool, error) {
	return p.get(ctx, KeyDarkMode)
}

func (p *Preferences) SetDarkMode(ctx context.Context, v bool) error {
	return p.set(ctx, KeyDarkMode, v)
}

// AutoClassify is the default for tagging new uploads.
func (p *Preferences) AutoClassify(ctx context.Context) (bool, error) {
	return p.get(ctx, KeyAutoClassify)
}

func (p *Preferences) SetAutoClassify(ctx context.Context, v bool) error {
	return p.set(ctx, KeyAutoClassify, v)
}
