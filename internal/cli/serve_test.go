package cli

import (
	"net"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestServeCmd_NilPlanner(t *testing.T) {
	isolateGlobals(t)

	_, err := runCmd(t, serveCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected not initialized error, got %v", err)
	}
}

func TestServeCmd_ListenError(t *testing.T) {
	isolateGlobals(t)
	Planner = &fakePlanner{}
	Logger, _ = test.NewNullLogger()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	_, err = runCmd(t, serveCmd, map[string]string{"addr": ln.Addr().String(), "no-rebuild": "true"})
	if err == nil || !strings.Contains(err.Error(), "serving HTTP API") {
		t.Fatalf("expected listen error, got %v", err)
	}
}

func TestMCPServeCmd_NilPlanner(t *testing.T) {
	isolateGlobals(t)

	_, err := runCmd(t, mcpServeCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected not initialized error, got %v", err)
	}
}
