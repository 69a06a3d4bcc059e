// Package client talks to the fileflow document backend.
//
// # Overview
//
// The package provides:
//  1. The transport contract (see the Client interface): login and
//     registration, category and document CRUD, signed access URLs,
//     multipart upload, AI tagging, and signed-URL downloads.
//  2. A REST implementation (see HTTPClient) that attaches the bearer token,
//     stamps every call with an X-Request-ID, optionally paces calls with a
//     token-bucket limiter, and turns rejected responses into *StatusError.
//  3. Local persistence bootstrap for the CLI (InitDatabase, RunMigrations):
//     an SQLite database with embedded goose migrations.
//
// # Error Handling
//
// Transport failures wrap ErrUnavailable. Rejected responses are *StatusError
// values which match ErrUnauthorized (401) and ErrNotFound (404) through
// errors.Is. Undecodable bodies wrap ErrMalformedResponse.
//
// HTTPClient is safe for concurrent use.
package client
