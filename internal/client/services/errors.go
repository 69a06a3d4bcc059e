package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fileflow/internal/common"
)

// Session errors.
var (
	ErrIdentityClaimMissing = errors.New("token has no name claim")
	ErrMalformedToken       = fmt.Errorf("malformed token: %w", common.ErrInvalidToken)
	ErrTokenExpired         = common.ErrTokenExpired
)

// Catalog errors. All precondition failures are reported before any backend
// call is made.
var (
	ErrAuthRequired         = errors.New("authentication required")
	ErrCatalogNotReady      = errors.New("catalog is not ready")
	ErrEmptyCategoryName    = fmt.Errorf("%w: category name is empty", common.ErrorValidation)
	ErrCategoryNotFound     = fmt.Errorf("category %w", common.ErrorNotFound)
	ErrDocumentNotFound     = fmt.Errorf("document %w", common.ErrorNotFound)
	ErrNotConfirmed         = errors.New("not confirmed")
	ErrAccessURLUnavailable = errors.New("access url unavailable")
	ErrMalformedAccessURL   = errors.New("malformed access url")
)
