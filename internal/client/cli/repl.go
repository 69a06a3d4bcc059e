package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/fileflow/internal/client/client"
	"github.com/dmitrijs2005/fileflow/internal/client/services"
	"github.com/dmitrijs2005/fileflow/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Refresh(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Categories(ctx context.Context) error
	Filter(ctx context.Context, args []string) error
	AddCategory(ctx context.Context, args []string) error
	DeleteCategory(ctx context.Context, args []string) error
	DeleteDocument(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	View(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	Settings(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: register, login, settings, help, exit"
	helpLoggedIn  = `Available commands:
  list [search]                     list documents (current filter)
  filter <categoryId|all> [search]  change the category filter
  categories                        list categories with document counts
  addcategory [name]                create a category
  delcategory <id>                  delete a category and its documents
  show <id>                         show a document from the catalog
  view <id>                         fetch a document and its access link
  download <id>                     save a document to the download dir
  delete <id>                       delete a document
  upload <path> [categoryId] [--tag|--no-tag]
  refresh                           reload the catalog
  settings [darkmode|autoclassify on|off]
  whoami, logout, help, exit`
)

// runREPL starts a simple read–eval–print loop for the fileflow CLI.
//
// It reads a line from reader, parses the first token as the command and
// dispatches to methods on 'a' with the remaining tokens as arguments.
// The loop exits on EOF, on context cancellation or when the user types
// "exit" or "quit".
//
// Commands other than register, login, settings and help need a session.
// Errors returned by handlers are printed as one line and never stop the loop.
// commandGate is implemented by executors that need to know when a command
// is in flight. end is called once the command's output has been printed.
type commandGate interface {
	beginCommand() (end func())
}

func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}

		printlnFn(fmt.Sprintf("ff%s> ", prefixSpace(statusFn())))
		line, readErr := reader.ReadString('\n')
		if readErr != nil && (!errors.Is(readErr, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}

		end := func() {}
		if g, ok := a.(commandGate); ok {
			end = g.beginCommand()
		}
		if err := dispatch(ctx, a, cmd, args); err != nil {
			printlnFn(describeError(err))
		}
		end()

		if readErr != nil {
			return
		}
	}
}

func prefixSpace(s string) string {
	if s == "" {
		return ""
	}
	return " " + s
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn(helpLoggedIn)
		} else {
			printlnFn(helpLoggedOut)
		}
		return nil
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "settings":
		return a.Settings(ctx, args)
	}

	handler, ok := sessionCommands[cmd]
	if !ok {
		printlnFn("Unknown command:", cmd)
		return nil
	}
	if !a.isLoggedIn() {
		printlnFn("Please log in first")
		return nil
	}
	return handler(a, ctx, args)
}

// commandFn has the shape of an execIface method expression.
type commandFn func(a execIface, ctx context.Context, args []string) error

func noArgs(fn func(execIface, context.Context) error) commandFn {
	return func(a execIface, ctx context.Context, _ []string) error { return fn(a, ctx) }
}

var sessionCommands = map[string]commandFn{
	"logout":      noArgs(execIface.Logout),
	"whoami":      noArgs(execIface.WhoAmI),
	"refresh":     noArgs(execIface.Refresh),
	"categories":  noArgs(execIface.Categories),
	"l":           execIface.List,
	"list":        execIface.List,
	"filter":      execIface.Filter,
	"addcategory": execIface.AddCategory,
	"delcategory": execIface.DeleteCategory,
	"delete":      execIface.DeleteDocument,
	"show":        execIface.Show,
	"view":        execIface.View,
	"download":    execIface.Download,
	"upload":      execIface.Upload,
}

// describeError turns a handler error into the single line shown to the user.
func describeError(err error) string {
	switch {
	case errors.Is(err, services.ErrNotConfirmed):
		return "Cancelled."
	case errors.Is(err, services.ErrAuthRequired):
		return "Session is no longer valid, please log in again."
	case errors.Is(err, services.ErrCatalogNotReady):
		return "Catalog is not loaded, try 'refresh'."
	case errors.Is(err, client.ErrUnavailable):
		return "Server is unavailable: " + err.Error()
	case errors.Is(err, errUsage):
		return "Usage:" + strings.TrimPrefix(err.Error(), errUsage.Error()+":")
	case errors.Is(err, common.ErrorValidation):
		return "Invalid input: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
