package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/fileflow/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   backend base URL
//	-d string   path of the local SQLite database
//	-o string   directory downloads are saved into
//	-p int      concurrent per-category requests when loading the catalog
//	-t int      per-request timeout (in seconds)
//	-i int      session expiry check interval (in seconds)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-o", "-p", "-t", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "backend base url")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database file")
	fs.StringVar(&cfg.DownloadDir, "o", cfg.DownloadDir, "download directory")
	fs.IntVar(&cfg.FetchConcurrency, "p", cfg.FetchConcurrency, "concurrent category requests")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	checkInterval := fs.Int("i", int(cfg.SessionCheckInterval.Seconds()), "session check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// only flags actually given override, so sub-second values from
	// earlier sources are not truncated
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
		case "i":
			cfg.SessionCheckInterval = time.Duration(*checkInterval) * time.Second
		}
	})
}
