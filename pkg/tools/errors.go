package tools

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// ErrFileNotFound is returned before any process is spawned when the
// import source does not exist.
var ErrFileNotFound = fmt.Errorf("file not found: %w", fs.ErrNotExist)

// TimeoutError reports a tool that did not exit within its timeout.
type TimeoutError struct {
	Tool       string
	File       string
	Database   string
	Collection string
	Timeout    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not finish within %dms (file %q, database %q, collection %q)",
		e.Tool, e.Timeout.Milliseconds(), e.File, e.Database, e.Collection)
}

// ExitCodeError reports a tool that exited with a non-zero status.
type ExitCodeError struct {
	Tool       string
	File       string
	Database   string
	Collection string
	ExitCode   int
	// Stderr holds what the tool printed on standard error.
	Stderr []string
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("%s exited with code %d (file %q, database %q, collection %q)",
		e.Tool, e.ExitCode, e.File, e.Database, e.Collection)
}

// IsTimeout reports whether err is, or wraps, a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// ExitCode extracts the exit code from an ExitCodeError chain.
func ExitCode(err error) (int, bool) {
	var ee *ExitCodeError
	if errors.As(err, &ee) {
		return ee.ExitCode, true
	}
	return 0, false
}
