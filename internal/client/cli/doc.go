// Package cli provides the interactive fileflow command-line client.
//
// It wires configuration, the local SQLite store, the REST client and the
// services behind a line-oriented REPL. On start the previous session is
// restored from the store and, when still valid, the catalog is loaded.
//
// Key features:
//   - Register / Login / Logout / WhoAmI
//   - List, filter and search the merged document catalog
//   - Create and delete categories, delete documents (with confirmation)
//   - View, download and upload documents, optional AI tagging
//   - Persistent preferences (dark mode, auto-classification)
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
