//go:build integration

package torrouter_test

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"testing"

	torrouter "github.com/t4weyhryjtey/tor-router"
)

// torPath is the tor binary resolved in TestMain, shared by all integration
// tests in this package.
var torPath string

// TestMain configures logging, locates the tor binary, and runs all tests.
// The suite needs a real tor installation; it exits with an explanation when
// none is found rather than failing every test individually.
func TestMain(m *testing.M) {
	level := slog.LevelWarn
	if os.Getenv("TORROUTER_TEST_DEBUG") != "" {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	torrouter.SetLogger(slog.New(handler).With("component", "tor-router"))

	path, err := exec.LookPath("tor")
	if err != nil {
		fmt.Fprintln(os.Stderr, "integration tests require a tor binary in PATH")
		os.Exit(1)
	}
	torPath = path

	os.Exit(m.Run())
}
