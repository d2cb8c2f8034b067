package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hylla/pejl/internal/app"
	"github.com/hylla/pejl/internal/domain"
)

// nopIssueService satisfies the MCP service surface with empty results.
type nopIssueService struct{}

func (nopIssueService) LoadIssue(context.Context, string) (app.LoadedIssue, error) {
	return app.LoadedIssue{}, app.ErrNotFound
}

func (nopIssueService) RecentIssues(context.Context) ([]domain.Issue, error) {
	return nil, nil
}

func (nopIssueService) SubmitFieldUpdate(context.Context, domain.Issue, domain.FieldID, string) (domain.Issue, error) {
	return domain.Issue{}, app.ErrNotFound
}

func (nopIssueService) FieldOptions(context.Context, domain.FieldID) ([]string, error) {
	return nil, nil
}

func (nopIssueService) AddComment(context.Context, domain.Issue, string) (domain.Issue, error) {
	return domain.Issue{}, app.ErrNotFound
}

func (nopIssueService) ListUpdateRecords(context.Context, string, int) ([]app.UpdateRecord, error) {
	return nil, nil
}

func TestNewHandlerServesHealthEndpoints(t *testing.T) {
	handler, _, err := NewHandler(Config{}, nopIssueService{})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := server.Client().Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, resp.StatusCode)
		}
		if string(body) != "{\"status\":\"ok\"}\n" {
			t.Fatalf("GET %s body = %q", path, body)
		}
	}
}

func TestNewHandlerRequiresService(t *testing.T) {
	if _, _, err := NewHandler(Config{}, nil); err == nil {
		t.Fatal("NewHandler() error = nil, want error")
	}
}

func TestNormalizeConfigDefaults(t *testing.T) {
	cfg := normalizeConfig(Config{})
	if cfg.HTTPBind != defaultBindAddress {
		t.Fatalf("HTTPBind = %q", cfg.HTTPBind)
	}
	if cfg.MCPEndpoint != "/mcp" {
		t.Fatalf("MCPEndpoint = %q", cfg.MCPEndpoint)
	}
	if cfg.ServerName != "pejl" || cfg.ServerVersion != "dev" {
		t.Fatalf("identity = %q %q", cfg.ServerName, cfg.ServerVersion)
	}
}

func TestNormalizeEndpointTrimsSlashes(t *testing.T) {
	cases := map[string]string{
		"":          "/mcp",
		"mcp":       "/mcp",
		"/agent/":   "/agent",
		"//tools//": "/tools",
	}
	for in, want := range cases {
		if got := normalizeEndpoint(in, "/mcp"); got != want {
			t.Fatalf("normalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}
