package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fileflow/internal/client/client"
	"github.com/dmitrijs2005/fileflow/internal/client/models"
	"github.com/dmitrijs2005/fileflow/internal/common"
	"github.com/dmitrijs2005/fileflow/internal/logging"
)

// AuthService runs the login, signup and logout flows.
type AuthService struct {
	client  client.Client
	session *SessionManager
	logger  logging.Logger
}

func NewAuthService(c client.Client, session *SessionManager, logger logging.Logger) *AuthService {
	return &AuthService{client: c, session: session, logger: logger}
}

// Login authenticates with the backend and establishes the returned token.
// The typed email is the fallback when the token has no email claim.
func (a *AuthService) Login(ctx context.Context, email string, password []byte) (models.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(password) == 0 {
		return models.Session{}, fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}

	token, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		return models.Session{}, fmt.Errorf("login: %w", err)
	}

	return a.session.Establish(ctx, token, email)
}

// Register creates the account and signs in with the token issued for it.
func (a *AuthService) Register(ctx context.Context, userName, email string, password []byte) (models.Session, error) {
	userName, email = strings.TrimSpace(userName), strings.TrimSpace(email)
	if userName == "" || email == "" || len(password) == 0 {
		return models.Session{}, fmt.Errorf("%w: user name, email and password are required", common.ErrorValidation)
	}

	token, err := a.client.Register(ctx, userName, email, string(password))
	if err != nil {
		return models.Session{}, fmt.Errorf("register: %w", err)
	}

	a.logger.Info(ctx, "account registered", "user", userName)
	return a.session.Establish(ctx, token, email)
}

// Logout clears the session. It is safe to call when signed out.
func (a *AuthService) Logout(ctx context.Context) error {
	return a.session.Clear(ctx)
}
