// Package flagx lets several parsers share one command line: each picks
// out the flags it owns and leaves the rest alone.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// Partition splits args into the allowed flags (with their values) and
// everything else. Both slices keep the original order.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.yaml
//  2. Flag and value combined with '=':      -config=conf.yaml
//
// A separate value is only taken when it does not start with '-'.
func Partition(args []string, allowedFlags []string) (matched, rest []string) {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	matched = make([]string, 0, len(args))
	rest = make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, known := allowed[name]; known {
				matched = append(matched, arg)
			} else {
				rest = append(rest, arg)
			}
			continue
		}

		if _, known := allowed[arg]; !known {
			rest = append(rest, arg)
			continue
		}
		matched = append(matched, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			matched = append(matched, args[i+1])
			i++
		}
	}

	return matched, rest
}

// FilterArgs returns only the allowed flags and their values.
func FilterArgs(args []string, allowedFlags []string) []string {
	matched, _ := Partition(args, allowedFlags)
	return matched
}

// ConfigFileFlags lists the flags naming a config file.
var ConfigFileFlags = []string{"-c", "-config"}

// ConfigFile returns the path passed with -c or -config, or "" when neither
// is present. With both, the last one wins.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "Path to config file (.json, .yaml or .yml)")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, ConfigFileFlags))

	return path
}
