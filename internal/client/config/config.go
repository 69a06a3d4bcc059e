package config

import "time"

// Config holds runtime settings for the fileflow CLI.
//
// Durations are time.Duration values; in JSON they may be written as "30s"
// or as integer nanoseconds, in the environment as "30s".
type Config struct {
	ServerBaseURL string `env:"FILEFLOW_SERVER_URL"`
	DatabasePath  string `env:"FILEFLOW_DB_PATH"`
	DownloadDir   string `env:"FILEFLOW_DOWNLOAD_DIR"`

	RequestTimeout       time.Duration `env:"FILEFLOW_REQUEST_TIMEOUT"`
	FetchConcurrency     int           `env:"FILEFLOW_FETCH_CONCURRENCY"`
	CategoryFetchTimeout time.Duration `env:"FILEFLOW_CATEGORY_FETCH_TIMEOUT"`
	RequestsPerSecond    float64       `env:"FILEFLOW_REQUESTS_PER_SECOND"`
	SessionCheckInterval time.Duration `env:"FILEFLOW_SESSION_CHECK_INTERVAL"`

	// AccessURLEndpoint is "presigned" or "download".
	AccessURLEndpoint string `env:"FILEFLOW_ACCESS_URL_ENDPOINT"`

	LogLevel  string `env:"FILEFLOW_LOG_LEVEL"`
	LogFormat string `env:"FILEFLOW_LOG_FORMAT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "https://localhost:7079"
	c.DatabasePath = "fileflow.db"
	c.DownloadDir = "download"
	c.RequestTimeout = 30 * time.Second
	c.FetchConcurrency = 6
	c.CategoryFetchTimeout = 0
	c.RequestsPerSecond = 0
	c.SessionCheckInterval = 30 * time.Second
	c.AccessURLEndpoint = "presigned"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones. Malformed input panics.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
