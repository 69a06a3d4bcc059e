// Package services holds the client's application logic between the REST
// client and the terminal UI.
//
// SessionManager owns the bearer token and the identity derived from its
// claims, persisted in the local metadata store. CatalogAggregator builds a
// single document catalog out of the backend's per-category listings and
// mediates every catalog mutation. AuthService, Uploader and Preferences are
// thin flows on top of those two.
//
// All services are safe for concurrent use.
package services
