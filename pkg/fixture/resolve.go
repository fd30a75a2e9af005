package fixture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattsolo1/grove-mongofixture/pkg/config"
	"github.com/mattsolo1/grove-mongofixture/pkg/dirsearch"
	"github.com/mattsolo1/grove-mongofixture/pkg/exec"
	"github.com/mattsolo1/grove-mongofixture/pkg/tools"
)

// MongodTool is the server binary name.
const MongodTool = "mongod"

// ResolveBinDir finds the directory holding mongod. An explicit BinDir
// wins; otherwise directories matching SearchPattern are looked for below
// and then above SearchRoot, and finally mongod is looked up on PATH.
func ResolveBinDir(cfg *config.Config, executor exec.CommandExecutor) (string, error) {
	if cfg.BinDir != "" {
		info, err := os.Stat(cfg.BinDir)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBinaryNotFound, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("%w: %s is not a directory", ErrBinaryNotFound, cfg.BinDir)
		}
		return cfg.BinDir, nil
	}

	root := cfg.SearchRoot
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get current directory: %w", err)
		}
		root = cwd
	}

	for _, find := range []func(string, string, int) (string, bool, error){
		dirsearch.FindUpwards,
		dirsearch.FindDownwards,
	} {
		match, ok, err := find(root, cfg.SearchPattern, cfg.MaxSearchDepth)
		if err != nil {
			return "", fmt.Errorf("search for %s: %w", cfg.SearchPattern, err)
		}
		if ok {
			return preferBin(match), nil
		}
	}

	if executor != nil {
		if path, err := executor.LookPath(MongodTool); err == nil {
			return filepath.Dir(path), nil
		}
	}
	return "", fmt.Errorf("%w: no directory matching %q near %s", ErrBinaryNotFound, cfg.SearchPattern, root)
}

// preferBin returns dir/bin when it exists, as in an unpacked server archive.
func preferBin(dir string) string {
	bin := filepath.Join(dir, "bin")
	if info, err := os.Stat(bin); err == nil && info.IsDir() {
		return bin
	}
	return dir
}

// makeToolsRunnable sets the execute bits on whichever binaries exist.
func makeToolsRunnable(binDir string) error {
	for _, tool := range []string{MongodTool, tools.ImportTool, tools.ExportTool} {
		path := exec.BinaryPath(binDir, tool)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := exec.MakeRunnable(path); err != nil {
			return err
		}
	}
	return nil
}
