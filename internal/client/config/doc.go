// Package config loads runtime configuration for the fileflow CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via -c/-config or
//     $FILEFLOW_CONFIG.
//  3. Environment variables (see parseEnv), after loading ./.env if present.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   backend base URL
//	-d string   local database file
//	-o string   download directory
//	-p int      concurrent category requests
//	-t int      request timeout (seconds)
//	-i int      session expiry check interval (seconds)
//
// # JSON schema
//
//	{
//	  "server_base_url": "https://localhost:7079",
//	  "database_path": "fileflow.db",
//	  "download_dir": "download",
//	  "request_timeout": "30s",
//	  "fetch_concurrency": 6,
//	  "category_fetch_timeout": "10s",
//	  "requests_per_second": 20,
//	  "session_check_interval": "30s",
//	  "access_url_endpoint": "presigned",
//	  "log_level": "info",
//	  "log_format": "text"
//	}
//
// # Environment
//
// Each field has a FILEFLOW_* variable, e.g. FILEFLOW_SERVER_URL,
// FILEFLOW_REQUESTS_PER_SECOND or FILEFLOW_LOG_FORMAT; see the struct tags
// on Config.
package config
