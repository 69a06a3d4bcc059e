package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/fileflow/internal/flagx"
	"github.com/dmitrijs2005/fileflow/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds.
type JsonConfig struct {
	ServerBaseURL        string         `json:"server_base_url"`
	DatabasePath         string         `json:"database_path"`
	DownloadDir          string         `json:"download_dir"`
	RequestTimeout       timex.Duration `json:"request_timeout"`
	FetchConcurrency     int            `json:"fetch_concurrency"`
	CategoryFetchTimeout timex.Duration `json:"category_fetch_timeout"`
	RequestsPerSecond    float64        `json:"requests_per_second"`
	SessionCheckInterval timex.Duration `json:"session_check_interval"`
	AccessURLEndpoint    string         `json:"access_url_endpoint"`
	LogLevel             string         `json:"log_level"`
	LogFormat            string         `json:"log_format"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config (or $FILEFLOW_CONFIG). Only keys present with a non-zero value
// override. Read and decode errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerBaseURL, jc.ServerBaseURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.DownloadDir, jc.DownloadDir)
	setString(&cfg.AccessURLEndpoint, jc.AccessURLEndpoint)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.CategoryFetchTimeout.Duration > 0 {
		cfg.CategoryFetchTimeout = jc.CategoryFetchTimeout.Duration
	}
	if jc.SessionCheckInterval.Duration > 0 {
		cfg.SessionCheckInterval = jc.SessionCheckInterval.Duration
	}
	if jc.FetchConcurrency > 0 {
		cfg.FetchConcurrency = jc.FetchConcurrency
	}
	if jc.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = jc.RequestsPerSecond
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
