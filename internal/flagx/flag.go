// Package flagx lets several packages pick their own flags out of the same
// command line without tripping over each other's definitions.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// ConfigPathEnv names the environment variable consulted when no -c/-config
// flag is given.
const ConfigPathEnv = "FILEFLOW_CONFIG"

// FilterArgs keeps only the allowed flags from args, together with their
// values. Both "-flag value" and "-flag=value" forms are recognized; a token
// starting with "-" is never consumed as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigPath returns the JSON config file named by -c or -config in args.
// When neither flag is present it falls back to $FILEFLOW_CONFIG, and
// finally to the empty string.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	return path
}
