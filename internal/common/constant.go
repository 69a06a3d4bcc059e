// Package common contains shared constants and sentinel errors used across
// fileflow components.
package common

const (
	// AuthorizationHeaderName carries the bearer token on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// RequestIDHeaderName correlates a client log line with a backend request.
	RequestIDHeaderName = "X-Request-ID"

	// BearerPrefix precedes the token in the Authorization header.
	BearerPrefix = "Bearer "
)
