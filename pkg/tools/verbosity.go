package tools

import (
	"fmt"
	"strings"
)

// Verbosity controls the --quiet/--verbose flag passed to the tools and
// whether a success notice is written after a run.
type Verbosity int

const (
	VerbosityQuiet Verbosity = iota - 1
	VerbosityNormal
	VerbosityVerbose
)

// ParseVerbosity accepts quiet, normal or verbose. An empty string is normal.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiet":
		return VerbosityQuiet, nil
	case "", "normal":
		return VerbosityNormal, nil
	case "verbose":
		return VerbosityVerbose, nil
	default:
		return VerbosityNormal, fmt.Errorf("unknown verbosity %q (want quiet, normal or verbose)", s)
	}
}

func (v Verbosity) String() string {
	switch {
	case v < VerbosityNormal:
		return "quiet"
	case v > VerbosityNormal:
		return "verbose"
	default:
		return "normal"
	}
}

// Flag is the command-line flag for v, or "" at normal verbosity.
func (v Verbosity) Flag() string {
	switch {
	case v < VerbosityNormal:
		return "--quiet"
	case v > VerbosityNormal:
		return "--verbose"
	default:
		return ""
	}
}
