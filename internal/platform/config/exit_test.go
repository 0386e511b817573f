package config_test

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/louisbranch/trapmacros/internal/platform/config"
)

const exitChildEnv = "TRAPMACROS_EXITF_CHILD"

// os.Exit cannot be observed in-process, so the test re-runs itself.
func TestExitfWritesAndExits(t *testing.T) {
	if os.Getenv(exitChildEnv) == "1" {
		config.Exitf("parse flags: %s", "unknown -ruleset")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitfWritesAndExits$")
	cmd.Env = append(os.Environ(), exitChildEnv+"=1")
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("err = %T %v, want exit error", err, err)
	}
	if code := exitErr.ExitCode(); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(string(out), "parse flags: unknown -ruleset") {
		t.Fatalf("output = %q", out)
	}
}
