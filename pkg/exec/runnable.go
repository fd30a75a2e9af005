package exec

import (
	"fmt"
	"os"
	"runtime"
)

// needsExecBit is false on platforms where the file mode does not decide
// whether a binary may run.
var needsExecBit = runtime.GOOS != "windows"

// MakeRunnable ensures path carries execute permission. Archives unpacked
// by package managers sometimes drop the bit; on Windows this is a no-op.
func MakeRunnable(path string) error {
	if !needsExecBit {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	mode := info.Mode()
	if mode&0o111 == 0o111 {
		return nil
	}
	if err := os.Chmod(path, mode|0o755); err != nil {
		return fmt.Errorf("chmod +x %s: %w", path, err)
	}
	return nil
}
