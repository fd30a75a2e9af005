package config

import (
	"os"
	"testing"
)

// chdirForTest changes the working directory to dir and restores the
// previous one when the test finishes (stand-in for testing.T.Chdir,
// which requires Go 1.24).
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
