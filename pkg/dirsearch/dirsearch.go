// Package dirsearch locates a directory by glob pattern, either by
// climbing toward the filesystem root or by descending into children,
// always within a fixed number of steps.
package dirsearch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/karrick/godirwalk"
)

// DefaultMaxDepth is the step bound used when a caller passes a negative depth.
const DefaultMaxDepth = 6

// Direction selects how a search moves away from its start path.
type Direction int

const (
	// Ancestors checks the start directory's children, then its parent's,
	// and so on toward the root.
	Ancestors Direction = iota
	// Descendants checks the start directory's children, then recurses
	// into each child depth-first.
	Descendants
)

func (d Direction) String() string {
	if d == Descendants {
		return "descendants"
	}
	return "ancestors"
}

// Request describes one search.
type Request struct {
	Start     string
	Pattern   string
	Direction Direction
	MaxDepth  int
}

// Result is the first matching directory, if any.
type Result struct {
	Path  string
	Found bool
}

// Search runs req. Relative starts are resolved against the working
// directory first. Only a missing directory is treated as "no match";
// any other filesystem failure is returned.
func Search(req Request) (Result, error) {
	if _, err := filepath.Match(req.Pattern, ""); err != nil {
		return Result{}, fmt.Errorf("invalid pattern %q: %w", req.Pattern, err)
	}
	start, err := filepath.Abs(req.Start)
	if err != nil {
		return Result{}, fmt.Errorf("resolve start %q: %w", req.Start, err)
	}
	depth := req.MaxDepth
	if depth < 0 {
		depth = DefaultMaxDepth
	}

	var path string
	switch req.Direction {
	case Descendants:
		path, err = descend(start, req.Pattern, 0, depth)
	default:
		path, err = climb(start, req.Pattern, depth)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Path: path, Found: path != ""}, nil
}

// FindDownwards looks for a child of start matching pattern, then
// retries from each ancestor in turn, at most maxDepth times. The walk
// stops before reaching the filesystem root.
func FindDownwards(start, pattern string, maxDepth int) (string, bool, error) {
	res, err := Search(Request{Start: start, Pattern: pattern, Direction: Ancestors, MaxDepth: maxDepth})
	return res.Path, res.Found, err
}

// FindUpwards looks for a child of start matching pattern, then searches
// the subtree below start depth-first up to maxDepth levels.
func FindUpwards(start, pattern string, maxDepth int) (string, bool, error) {
	res, err := Search(Request{Start: start, Pattern: pattern, Direction: Descendants, MaxDepth: maxDepth})
	return res.Path, res.Found, err
}

func climb(path, pattern string, maxDepth int) (string, error) {
	for step := 0; ; step++ {
		match, _, err := scan(path, pattern)
		if err != nil || match != "" {
			return match, err
		}
		if step >= maxDepth {
			return "", nil
		}
		parent, ok := removeLastPart(path)
		if !ok {
			return "", nil
		}
		path = parent
	}
}

func descend(path, pattern string, depth, maxDepth int) (string, error) {
	match, children, err := scan(path, pattern)
	if err != nil || match != "" {
		return match, err
	}
	if depth >= maxDepth {
		return "", nil
	}
	for _, child := range children {
		match, err := descend(child, pattern, depth+1, maxDepth)
		if err != nil || match != "" {
			return match, err
		}
	}
	return "", nil
}

// removeLastPart strips the final path element. It reports false once
// only a root (or ".") would remain.
func removeLastPart(path string) (string, bool) {
	clean := filepath.Clean(path)
	parent := filepath.Dir(clean)
	if parent == clean || parent == "." || isRoot(parent) {
		return "", false
	}
	return parent, true
}

func isRoot(path string) bool {
	return filepath.Dir(path) == path
}

// scan lists the immediate subdirectories of dir in listing order and
// returns the first whose name matches pattern.
func scan(dir, pattern string) (string, []string, error) {
	dirents, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		if isNotFound(err) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var children []string
	for _, de := range dirents {
		full := filepath.Join(dir, de.Name())
		if !isDir(de, full) {
			continue
		}
		if ok, _ := filepath.Match(pattern, de.Name()); ok {
			return full, nil, nil
		}
		children = append(children, full)
	}
	return "", children, nil
}

func isDir(de *godirwalk.Dirent, full string) bool {
	if de.IsDir() {
		return true
	}
	if !de.IsSymlink() {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.IsDir()
}

func isNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR)
}
