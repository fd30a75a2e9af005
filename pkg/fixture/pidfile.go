package fixture

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PIDFileName is written into the data directory while mongod runs.
const PIDFileName = "mongod.lock.pid"

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, PIDFileName)
}

// writePIDFile records pid in dataDir.
func writePIDFile(dataDir string, pid int) error {
	return os.WriteFile(pidFilePath(dataDir), []byte(strconv.Itoa(pid)), 0644)
}

// removePIDFile deletes the pid file. It's not an error if it is gone.
func removePIDFile(dataDir string) error {
	err := os.Remove(pidFilePath(dataDir))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ReadPIDFile returns the pid recorded in dataDir.
func ReadPIDFile(dataDir string) (int, error) {
	content, err := os.ReadFile(pidFilePath(dataDir))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in pid file: %w", err)
	}
	return pid, nil
}
