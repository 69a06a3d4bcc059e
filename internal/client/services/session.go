package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/fileflow/internal/client/models"
	"github.com/dmitrijs2005/fileflow/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fileflow/internal/dbx"
	"github.com/dmitrijs2005/fileflow/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// Storage keys of the persisted session.
const (
	KeyToken     = "token"
	KeyUserName  = "userName"
	KeyUserEmail = "userEmail"
)

var sessionKeys = []string{KeyToken, KeyUserName, KeyUserEmail}

// Claim names, in lookup order. The backend issues ASP.NET identity claims;
// the short forms cover other issuers.
var (
	nameClaims = []string{
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name",
		"unique_name",
		"name",
	}
	emailClaims = []string{
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress",
		"email",
	}
)

// SessionManager owns the bearer token and the identity derived from it.
// It is the only writer of the persisted session keys.
type SessionManager struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time

	mu      sync.RWMutex
	session models.Session
}

type SessionOption func(*SessionManager)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionManager) { s.now = now }
}

func NewSessionManager(db *sql.DB, logger logging.Logger, opts ...SessionOption) *SessionManager {
	s := &SessionManager{db: db, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionManager) repo() metadata.Repository {
	return metadata.NewSQLiteRepository(s.db)
}

type identity struct {
	name      string
	email     string
	expiresAt time.Time
}

// decodeToken reads the claims without verifying the signature; the client
// holds no key and the backend verifies every call anyway.
func decodeToken(token string) (identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return identity{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return identity{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	id := identity{
		name:  firstClaim(claims, nameClaims),
		email: firstClaim(claims, emailClaims),
	}
	if exp != nil {
		id.expiresAt = exp.Time
	}
	return id, nil
}

// firstClaim returns the first non-empty string among keys. Multi-valued
// claims contribute their first string element.
func firstClaim(claims jwt.MapClaims, keys []string) string {
	for _, k := range keys {
		switch v := claims[k].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
	}
	return ""
}

func expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}

// Restore rehydrates the session from storage. A missing, undecodable or
// expired token leaves the manager unauthenticated and the storage cleared.
// It never fails; storage errors are logged.
func (s *SessionManager) Restore(ctx context.Context) models.Session {
	stored, err := s.repo().GetMany(ctx, sessionKeys...)
	if err != nil {
		s.logger.Error(ctx, "read stored session", "err", err)
		s.reset(ctx)
		return models.Session{}
	}

	token := string(stored[KeyToken])
	if token == "" {
		s.reset(ctx)
		return models.Session{}
	}

	id, err := decodeToken(token)
	if err != nil {
		s.logger.Warn(ctx, "discarding stored token", "err", err)
		s.reset(ctx)
		return models.Session{}
	}
	if expired(id.expiresAt, s.now()) {
		s.logger.Info(ctx, "stored session expired", "expired_at", id.expiresAt)
		s.reset(ctx)
		return models.Session{}
	}

	name := string(stored[KeyUserName])
	if name == "" {
		name = id.name
	}
	email := string(stored[KeyUserEmail])
	if email == "" {
		email = id.email
	}
	if name == "" {
		s.logger.Warn(ctx, "discarding stored token", "err", ErrIdentityClaimMissing)
		s.reset(ctx)
		return models.Session{}
	}

	sess := models.Session{
		Token:         token,
		ExpiresAt:     id.expiresAt,
		UserName:      name,
		UserEmail:     email,
		Authenticated: true,
	}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	s.logger.Info(ctx, "session restored", "user", name)
	return sess
}

// Establish adopts a freshly issued token. The identity is derived from the
// token's claims; fallbackEmail is used when the token has no email claim.
// Any failure leaves the manager unauthenticated with nothing persisted.
func (s *SessionManager) Establish(ctx context.Context, token, fallbackEmail string) (models.Session, error) {
	sess, err := s.establish(ctx, strings.TrimSpace(token), strings.TrimSpace(fallbackEmail))
	if err != nil {
		s.reset(ctx)
		return models.Session{}, err
	}
	return sess, nil
}

func (s *SessionManager) establish(ctx context.Context, token, fallbackEmail string) (models.Session, error) {
	if token == "" {
		return models.Session{}, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	id, err := decodeToken(token)
	if err != nil {
		return models.Session{}, err
	}
	if id.name == "" {
		return models.Session{}, ErrIdentityClaimMissing
	}
	if expired(id.expiresAt, s.now()) {
		return models.Session{}, ErrTokenExpired
	}

	email := id.email
	if email == "" {
		email = fallbackEmail
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, KeyToken, []byte(token)); err != nil {
			return err
		}
		if err := repo.Set(ctx, KeyUserName, []byte(id.name)); err != nil {
			return err
		}
		if email == "" {
			return repo.Delete(ctx, KeyUserEmail)
		}
		return repo.Set(ctx, KeyUserEmail, []byte(email))
	})
	if err != nil {
		return models.Session{}, fmt.Errorf("persist session: %w", err)
	}

	sess := models.Session{
		Token:         token,
		ExpiresAt:     id.expiresAt,
		UserName:      id.name,
		UserEmail:     email,
		Authenticated: true,
	}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	s.logger.Info(ctx, "session established", "user", id.name)
	return sess, nil
}

// Clear forgets the session in memory and in storage. Preferences are kept.
// Calling it on an empty session is a no-op.
func (s *SessionManager) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.session = models.Session{}
	s.mu.Unlock()

	if err := s.repo().Delete(ctx, sessionKeys...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SessionManager) reset(ctx context.Context) {
	if err := s.Clear(ctx); err != nil {
		s.logger.Error(ctx, "clear session", "err", err)
	}
}

// CurrentToken returns the active token. An absent or expired token yields
// ("", false); expiry detected here clears the session.
func (s *SessionManager) CurrentToken(ctx context.Context) (string, bool) {
	sess, _ := s.check(ctx)
	if !sess.Authenticated {
		return "", false
	}
	return sess.Token, true
}

// Session returns a snapshot with the expiry check applied.
func (s *SessionManager) Session() models.Session {
	sess, _ := s.check(context.Background())
	return sess
}

func (s *SessionManager) IsAuthenticated() bool {
	return s.Session().Authenticated
}

// check returns the current session, clearing it first if it has expired.
// The bool reports whether this call did the clearing.
func (s *SessionManager) check(ctx context.Context) (models.Session, bool) {
	s.mu.RLock()
	sess := s.session
	s.mu.RUnlock()

	if !sess.Authenticated || !sess.Expired(s.now()) {
		return sess, false
	}

	s.mu.Lock()
	if s.session.Token != sess.Token {
		// replaced by a concurrent Establish or Clear
		cur := s.session
		s.mu.Unlock()
		return cur, false
	}
	s.session = models.Session{}
	s.mu.Unlock()

	s.logger.Info(ctx, "session expired", "user", sess.UserName, "expired_at", sess.ExpiresAt)
	if err := s.repo().Delete(ctx, sessionKeys...); err != nil {
		s.logger.Error(ctx, "clear session", "err", err)
	}
	return models.Session{}, true
}

// WatchExpiry checks the token every interval until ctx is done and clears
// the session once it expires. onExpire, if set, is called once per detected
// expiry with the session that ended.
func (s *SessionManager) WatchExpiry(ctx context.Context, interval time.Duration, onExpire func(models.Session)) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.RLock()
			before := s.session
			s.mu.RUnlock()

			if _, cleared := s.check(ctx); cleared && onExpire != nil {
				onExpire(before)
			}

		case <-ctx.Done():
			return
		}
	}
}
