package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	serveradapter "github.com/hylla/pejl/internal/adapters/server"
	"github.com/hylla/pejl/internal/adapters/server/mcpapi"
)

// TestMain sets deterministic environment defaults for CLI tests.
func TestMain(m *testing.M) {
	_ = os.Setenv("PEJL_DEV_MODE", "false")
	os.Exit(m.Run())
}

// fakeProgram represents fake program data used by this package.
type fakeProgram struct {
	runErr error
}

// Run runs the requested command flow.
func (f fakeProgram) Run() (tea.Model, error) {
	return nil, f.runErr
}

// testIssueJSON is one wire snapshot in the tracker API shape.
const testIssueJSON = `{
	"key": "PEJL-1",
	"project": "pejl",
	"reporter": "dana",
	"summary": "Cursor lands on read-only cell",
	"description": "Steps to reproduce.",
	"status": "open",
	"priority": "high",
	"assignee": "rory",
	"labels": ["tui"],
	"links": [{"kind": "blocks", "target_key": "PEJL-2"}],
	"comments": [{"id": "c1", "author": "dana", "body": "confirmed", "created_at": "2026-03-14T08:00:00Z"}],
	"created_at": "2026-03-14T08:00:00Z",
	"updated_at": "2026-03-14T09:00:00Z"
}`

// newTrackerStub serves one issue at the tracker REST path.
func newTrackerStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/issues/PEJL-1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, testIssueJSON)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":"not_found","message":"no such issue"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// baseArgs returns flags pointing every path at a temp workspace.
func baseArgs(t *testing.T, trackerURL string) []string {
	t.Helper()
	dir := t.TempDir()
	args := []string{
		"--config", filepath.Join(dir, "config.toml"),
		"--cache", filepath.Join(dir, "pejl.db"),
	}
	if trackerURL != "" {
		args = append(args, "--tracker-url", trackerURL)
	}
	return args
}

// TestRunVersion verifies behavior for the covered scenario.
func TestRunVersion(t *testing.T) {
	var out strings.Builder
	err := run(context.Background(), []string{"--version"}, &out, io.Discard)
	if err != nil {
		t.Fatalf("run(version) error = %v", err)
	}
	if !strings.Contains(out.String(), "dev") {
		t.Fatalf("expected version output, got %q", out.String())
	}
}

// TestRunStartsProgram verifies behavior for the covered scenario.
func TestRunStartsProgram(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })

	var started bool
	programFactory = func(_ tea.Model) program {
		started = true
		return fakeProgram{}
	}

	err := run(context.Background(), baseArgs(t, ""), io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !started {
		t.Fatal("expected tui program to start")
	}
}

// TestRunPathsCommand verifies behavior for the covered scenario.
func TestRunPathsCommand(t *testing.T) {
	args := append([]string{"paths"}, baseArgs(t, "")...)
	var out strings.Builder
	if err := run(context.Background(), args, &out, io.Discard); err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	got := out.String()
	for _, want := range []string{"app: pejl", "config: ", "cache: ", "tracker: "} {
		if !strings.Contains(got, want) {
			t.Fatalf("paths output missing %q:\n%s", want, got)
		}
	}
	if !strings.Contains(got, "config.toml") {
		t.Fatalf("expected flag-provided config path in output:\n%s", got)
	}
}

// TestRunShowCommand verifies behavior for the covered scenario.
func TestRunShowCommand(t *testing.T) {
	srv := newTrackerStub(t)
	args := append([]string{"show", "PEJL-1"}, baseArgs(t, srv.URL)...)

	var out strings.Builder
	if err := run(context.Background(), args, &out, io.Discard); err != nil {
		t.Fatalf("run(show) error = %v", err)
	}
	got := out.String()
	for _, want := range []string{"PEJL-1", "Cursor lands on read-only cell", "status: open", "blocks PEJL-2", "confirmed"} {
		if !strings.Contains(got, want) {
			t.Fatalf("show output missing %q:\n%s", want, got)
		}
	}
}

// TestRunShowJSON verifies behavior for the covered scenario.
func TestRunShowJSON(t *testing.T) {
	srv := newTrackerStub(t)
	args := append([]string{"show", "PEJL-1", "--json"}, baseArgs(t, srv.URL)...)

	var out strings.Builder
	if err := run(context.Background(), args, &out, io.Discard); err != nil {
		t.Fatalf("run(show --json) error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out.String()), &decoded); err != nil {
		t.Fatalf("show --json emitted invalid JSON: %v\n%s", err, out.String())
	}
	if decoded["Key"] != "PEJL-1" {
		t.Fatalf("unexpected decoded key %v", decoded["Key"])
	}
}

// TestRunShowUnknownIssue verifies behavior for the covered scenario.
func TestRunShowUnknownIssue(t *testing.T) {
	srv := newTrackerStub(t)
	args := append([]string{"show", "PEJL-404"}, baseArgs(t, srv.URL)...)

	err := run(context.Background(), args, io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected error for unknown issue")
	}
	if !strings.Contains(err.Error(), "PEJL-404") {
		t.Fatalf("error should name the issue key, got %v", err)
	}
}

// TestRunServeUsesRunner verifies behavior for the covered scenario.
func TestRunServeUsesRunner(t *testing.T) {
	origRunner := serveCommandRunner
	t.Cleanup(func() { serveCommandRunner = origRunner })

	var captured serveradapter.Config
	serveCommandRunner = func(_ context.Context, cfg serveradapter.Config, issues mcpapi.IssueService) error {
		captured = cfg
		if issues == nil {
			t.Error("expected issue service dependency")
		}
		return nil
	}

	args := append([]string{"serve", "--http", "127.0.0.1:0", "--mcp-endpoint", "/agent"}, baseArgs(t, "")...)
	if err := run(context.Background(), args, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(serve) error = %v", err)
	}
	if captured.HTTPBind != "127.0.0.1:0" || captured.MCPEndpoint != "/agent" {
		t.Fatalf("unexpected serve config %+v", captured)
	}
	if captured.ServerName != "pejl" {
		t.Fatalf("unexpected server name %q", captured.ServerName)
	}
}

// TestResolveRuntimeEnvPrecedence verifies behavior for the covered scenario.
func TestResolveRuntimeEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PEJL_CONFIG", filepath.Join(dir, "env-config.toml"))
	t.Setenv("PEJL_CACHE_PATH", filepath.Join(dir, "env-cache.db"))
	t.Setenv("PEJL_TRACKER_URL", "http://env.invalid:7337")

	rt, err := resolveRuntimeEnv(&cliOptions{})
	if err != nil {
		t.Fatalf("resolveRuntimeEnv(env) error = %v", err)
	}
	if rt.configPath != filepath.Join(dir, "env-config.toml") {
		t.Fatalf("env config path not honored: %q", rt.configPath)
	}
	if rt.cfg.Cache.Path != filepath.Join(dir, "env-cache.db") {
		t.Fatalf("env cache path not honored: %q", rt.cfg.Cache.Path)
	}
	if rt.cfg.Tracker.BaseURL != "http://env.invalid:7337" {
		t.Fatalf("env tracker url not honored: %q", rt.cfg.Tracker.BaseURL)
	}

	flagConfig := filepath.Join(dir, "flag-config.toml")
	flagCache := filepath.Join(dir, "flag-cache.db")
	rt, err = resolveRuntimeEnv(&cliOptions{
		configPath: flagConfig,
		cachePath:  flagCache,
		trackerURL: "http://flag.invalid:7337",
	})
	if err != nil {
		t.Fatalf("resolveRuntimeEnv(flags) error = %v", err)
	}
	if rt.configPath != flagConfig || rt.cfg.Cache.Path != flagCache {
		t.Fatalf("flags should win over env: %q %q", rt.configPath, rt.cfg.Cache.Path)
	}
	if rt.cfg.Tracker.BaseURL != "http://flag.invalid:7337" {
		t.Fatalf("flag tracker url should win: %q", rt.cfg.Tracker.BaseURL)
	}
}

// TestRunRejectsUnknownCommand verifies behavior for the covered scenario.
func TestRunRejectsUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"unknown-subcommand", "extra"}, io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
}
