package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// dotenvFiles are loaded before the environment is read. Variables already
// set in the process environment win over the file.
var dotenvFiles = []string{".env"}

// parseEnv overlays Config with FILEFLOW_* environment variables. Unset
// variables leave the field alone. A missing .env file is ignored; a
// malformed one, or a malformed value, panics.
func parseEnv(cfg *Config) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		panic(err)
	}
}
