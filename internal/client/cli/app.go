package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/fileflow/internal/client/client"
	"github.com/dmitrijs2005/fileflow/internal/client/config"
	"github.com/dmitrijs2005/fileflow/internal/client/models"
	"github.com/dmitrijs2005/fileflow/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fileflow/internal/client/services"
	"github.com/dmitrijs2005/fileflow/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	session  *services.SessionManager
	auth     *services.AuthService
	catalog  *services.CatalogAggregator
	uploader *services.Uploader
	prefs    *services.Preferences

	// current view, changed by list and filter
	filter services.CategoryFilter
	search string

	// cmdMu is read-held while a REPL command runs
	cmdMu sync.RWMutex

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time
}

// NewApp opens the local database, builds the REST client and wires the
// services. The caller owns the App and must Run or Close it.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "err", err)
		return nil, err
	}

	burst := int(math.Ceil(c.RequestsPerSecond))
	apiClient, err := client.NewHTTPClient(c.ServerBaseURL,
		client.WithTimeout(c.RequestTimeout),
		client.WithRateLimit(c.RequestsPerSecond, burst),
		client.WithAccessURLEndpoint(client.AccessURLEndpoint(c.AccessURLEndpoint)),
		client.WithLogger(logger.With("component", "http")),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return newApp(c, logger, db, apiClient), nil
}

func newApp(c *config.Config, logger logging.Logger, db *sql.DB, api client.Client) *App {
	session := services.NewSessionManager(db, logger.With("component", "session"))
	prefs := services.NewPreferences(metadata.NewSQLiteRepository(db))

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		session: session,
		auth:    services.NewAuthService(api, session, logger.With("component", "auth")),
		catalog: services.NewCatalogAggregator(api, session, logger.With("component", "catalog"),
			services.WithFetchConcurrency(c.FetchConcurrency),
			services.WithCategoryTimeout(c.CategoryFetchTimeout),
		),
		uploader: services.NewUploader(api, session, prefs, logger.With("component", "upload")),
		prefs:    prefs,
		filter:   services.AllCategories,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		now:      time.Now,
	}
}

// Run restores the previous session, starts the expiry watcher and serves
// the REPL until the user quits, input ends or ctx is cancelled. On cancel
// the command in flight gets interruptGrace to finish. The database is
// closed on return.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.start(ctx)

	go a.session.WatchExpiry(ctx, a.config.SessionCheckInterval, a.onSessionExpired)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runREPL(ctx, a, a.getStatus, a.reader)
	}()

	// a blocked read on stdin cannot observe ctx, so an interrupt ends Run here
	select {
	case <-done:
	case <-ctx.Done():
		a.awaitCommand(ctx, done)
		printlnFn("\nInterrupted.")
	}
	return nil
}

// interruptGrace bounds how long an interrupted Run waits for the command in
// flight before the database is closed under it.
var interruptGrace = 5 * time.Second

func (a *App) beginCommand() func() {
	a.cmdMu.RLock()
	return a.cmdMu.RUnlock
}

// awaitCommand returns once the REPL has stopped or no command is running.
// The gate stays locked, so a line read after this point never dispatches.
func (a *App) awaitCommand(ctx context.Context, done <-chan struct{}) {
	idle := make(chan struct{})
	go func() {
		a.cmdMu.Lock()
		close(idle)
	}()

	select {
	case <-done:
	case <-idle:
	case <-time.After(interruptGrace):
		a.logger.Warn(ctx, "command still running after interrupt", "grace", interruptGrace)
	}
}

func (a *App) Close() error {
	return a.db.Close()
}

func (a *App) start(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to fileflow (type 'help' for commands)")

	sess := a.session.Restore(ctx)
	if !sess.Authenticated {
		return
	}

	fmt.Fprintf(a.out, "Signed in as %s\n", sess.UserName)
	if err := a.Refresh(ctx); err != nil {
		printlnFn(describeError(err))
	}
}

func (a *App) onSessionExpired(s models.Session) {
	a.catalog.Reset()
	printlnFn(fmt.Sprintf("\nSession of %s expired, please log in again.", s.UserName))
}

// forgetCatalog drops the loaded catalog together with the list view
// settings that refer to it.
func (a *App) forgetCatalog() {
	a.catalog.Reset()
	a.filter, a.search = services.AllCategories, ""
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) getStatus() string {
	sess := a.session.Session()
	if !sess.Authenticated {
		return ""
	}
	return fmt.Sprintf("(%s %s)", sess.UserName, a.catalog.State())
}

func (a *App) palette(ctx context.Context) palette {
	dark, err := a.prefs.DarkMode(ctx)
	if err != nil {
		a.logger.Warn(ctx, "read darkMode preference", "err", err)
	}
	return newPalette(dark)
}

// confirm asks a y/N question on the App's input.
func (a *App) confirm(prompt string) bool {
	ok, err := Confirm(a.reader, prompt, a.out)
	if err != nil {
		return false
	}
	return ok
}
