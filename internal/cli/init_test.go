package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wesellis/pulse-activity-tracker/internal/core"
)

func TestInitCmd_NilInitializer(t *testing.T) {
	isolateGlobals(t)

	_, err := runCmd(t, initCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected not initialized error, got %v", err)
	}
}

func TestInitCmd_CreatesThenSkips(t *testing.T) {
	isolateGlobals(t)
	WorkspaceInit = core.NewWorkspaceInitializer(nil)
	dir := filepath.Join(t.TempDir(), "pulse")

	out, err := runCmd(t, initCmd, nil, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Created:") || !strings.Contains(out, core.ConfigFileName+".yaml") {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName+".yaml")); err != nil {
		t.Errorf("expected config file: %v", err)
	}

	out, err = runCmd(t, initCmd, nil, dir)
	if err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}
	if strings.Contains(out, "Created:") || !strings.Contains(out, "Skipped (already exist):") {
		t.Errorf("expected only skipped files on second run, got %q", out)
	}
}

func TestInitCmd_DefaultsToBasePath(t *testing.T) {
	isolateGlobals(t)
	WorkspaceInit = core.NewWorkspaceInitializer(nil)
	BasePath = t.TempDir()

	out, err := runCmd(t, initCmd, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Pulse initialized at "+BasePath) {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(filepath.Join(BasePath, ".env.example")); err != nil {
		t.Errorf("expected .env.example: %v", err)
	}
}
