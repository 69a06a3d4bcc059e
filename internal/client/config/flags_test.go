package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"-a", "http://127.0.0.1:5000", "-d", "x.db", "-o", "out", "-p", "3", "-t", "10", "-i", "60"},
			expected: &Config{
				ServerBaseURL: "http://127.0.0.1:5000", DatabasePath: "x.db", DownloadDir: "out",
				FetchConcurrency: 3, RequestTimeout: 10 * time.Second, SessionCheckInterval: time.Minute,
			},
		},
		{
			name:     "foreign flags are ignored",
			args:     []string{"-c", "cfg.json", "-verbose", "-a=http://h"},
			expected: &Config{ServerBaseURL: "http://h", RequestTimeout: 1500 * time.Millisecond},
		},
		{name: "incorrect timeout", args: []string{"-t", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withArgs(t, tt.args...)
			config := &Config{RequestTimeout: 1500 * time.Millisecond}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}

			require.NotPanics(t, func() { parseFlags(config) })
			if tt.expected.RequestTimeout == 0 {
				tt.expected.RequestTimeout = 1500 * time.Millisecond
			}
			assert.Equal(t, tt.expected, config)
		})
	}
}
