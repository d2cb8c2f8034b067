// Package mcpapi provides a stateless MCP streamable-HTTP adapter so
// agents can read and edit tracked issues through the same service the
// terminal client uses.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/pejl/internal/app"
	"github.com/hylla/pejl/internal/domain"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// IssueService is the app-facing surface the MCP tools call.
type IssueService interface {
	LoadIssue(ctx context.Context, key string) (app.LoadedIssue, error)
	RecentIssues(ctx context.Context) ([]domain.Issue, error)
	SubmitFieldUpdate(ctx context.Context, issue domain.Issue, field domain.FieldID, value string) (domain.Issue, error)
	FieldOptions(ctx context.Context, field domain.FieldID) ([]string, error)
	AddComment(ctx context.Context, issue domain.Issue, body string) (domain.Issue, error)
	ListUpdateRecords(ctx context.Context, issueKey string, limit int) ([]app.UpdateRecord, error)
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing issue tools.
func NewHandler(cfg Config, issues IssueService) (*Handler, error) {
	if issues == nil {
		return nil, fmt.Errorf("issue service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerGetIssueTool(mcpSrv, issues)
	registerRecentIssuesTool(mcpSrv, issues)
	registerSetFieldTool(mcpSrv, issues)
	registerFieldOptionsTool(mcpSrv, issues)
	registerAddCommentTool(mcpSrv, issues)
	registerUpdateLogTool(mcpSrv, issues)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "pejl"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// issueResult is the wire shape shared by tools that return issues.
type issueResult struct {
	Key         string          `json:"key"`
	Project     string          `json:"project"`
	Reporter    string          `json:"reporter"`
	Summary     string          `json:"summary"`
	Description string          `json:"description,omitempty"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	Assignee    string          `json:"assignee,omitempty"`
	Labels      []string        `json:"labels,omitempty"`
	Links       []linkResult    `json:"links,omitempty"`
	Comments    []commentResult `json:"comments,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

type linkResult struct {
	Kind      string `json:"kind"`
	TargetKey string `json:"target_key"`
}

type commentResult struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// toIssueResult flattens one domain issue for tool output.
func toIssueResult(issue domain.Issue) issueResult {
	links := make([]linkResult, 0, len(issue.Links))
	for _, l := range issue.Links {
		links = append(links, linkResult{Kind: string(l.Kind), TargetKey: l.TargetKey})
	}
	comments := make([]commentResult, 0, len(issue.Comments))
	for _, comment := range issue.Comments {
		comments = append(comments, commentResult{
			ID:        comment.ID,
			Author:    comment.Author,
			Body:      comment.Body,
			CreatedAt: comment.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return issueResult{
		Key:         issue.Key,
		Project:     issue.Project,
		Reporter:    issue.Reporter,
		Summary:     issue.Summary,
		Description: issue.Description,
		Status:      issue.Status,
		Priority:    string(issue.Priority),
		Assignee:    issue.Assignee,
		Labels:      issue.Labels,
		Links:       links,
		Comments:    comments,
		CreatedAt:   issue.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   issue.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// registerGetIssueTool registers the `pejl.get_issue` tool.
func registerGetIssueTool(srv *mcpserver.MCPServer, issues IssueService) {
	srv.AddTool(
		mcp.NewTool(
			"pejl.get_issue",
			mcp.WithDescription("Fetch one issue snapshot by key, falling back to the local cache when offline."),
			mcp.WithString("key", mcp.Required(), mcp.Description("Issue key, e.g. PEJL-7")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			key, err := req.RequireString("key")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			loaded, err := issues.LoadIssue(ctx, key)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"issue":      toIssueResult(loaded.Issue),
				"source":     string(loaded.Source),
				"fetched_at": loaded.FetchedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			})
			if err != nil {
				return nil, fmt.Errorf("encode get_issue result: %w", err)
			}
			return result, nil
		},
	)
}

// registerRecentIssuesTool registers the `pejl.recent_issues` tool.
func registerRecentIssuesTool(srv *mcpserver.MCPServer, issues IssueService) {
	srv.AddTool(
		mcp.NewTool(
			"pejl.recent_issues",
			mcp.WithDescription("List locally cached issue snapshots, newest first."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			recent, err := issues.RecentIssues(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			out := make([]issueResult, 0, len(recent))
			for _, issue := range recent {
				out = append(out, toIssueResult(issue))
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"issues": out,
			})
			if err != nil {
				return nil, fmt.Errorf("encode recent_issues result: %w", err)
			}
			return result, nil
		},
	)
}

// registerSetFieldTool registers the `pejl.set_field` tool.
func registerSetFieldTool(srv *mcpserver.MCPServer, issues IssueService) {
	fieldNames := make([]string, 0)
	for _, id := range domain.FieldIDs() {
		if !id.ReadOnly() {
			fieldNames = append(fieldNames, string(id))
		}
	}
	srv.AddTool(
		mcp.NewTool(
			"pejl.set_field",
			mcp.WithDescription("Set one editable field on an issue and return the refreshed snapshot."),
			mcp.WithString("key", mcp.Required(), mcp.Description("Issue key")),
			mcp.WithString("field", mcp.Required(), mcp.Description("Field identifier"), mcp.Enum(fieldNames...)),
			mcp.WithString("value", mcp.Required(), mcp.Description("New field value")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			key, err := req.RequireString("key")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			fieldRaw, err := req.RequireString("field")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			value, err := req.RequireString("value")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			field, err := domain.ParseFieldID(fieldRaw)
			if err != nil {
				return toolResultFromError(err), nil
			}
			loaded, err := issues.LoadIssue(ctx, key)
			if err != nil {
				return toolResultFromError(err), nil
			}
			updated, err := issues.SubmitFieldUpdate(ctx, loaded.Issue, field, value)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"issue": toIssueResult(updated),
			})
			if err != nil {
				return nil, fmt.Errorf("encode set_field result: %w", err)
			}
			return result, nil
		},
	)
}

// registerFieldOptionsTool registers the `pejl.field_options` tool.
func registerFieldOptionsTool(srv *mcpserver.MCPServer, issues IssueService) {
	srv.AddTool(
		mcp.NewTool(
			"pejl.field_options",
			mcp.WithDescription("List allowed values for one choice field."),
			mcp.WithString("field", mcp.Required(), mcp.Description("Field identifier"),
				mcp.Enum(string(domain.FieldStatus), string(domain.FieldPriority), string(domain.FieldAssignee))),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			fieldRaw, err := req.RequireString("field")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			field, err := domain.ParseFieldID(fieldRaw)
			if err != nil {
				return toolResultFromError(err), nil
			}
			options, err := issues.FieldOptions(ctx, field)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"field":   string(field),
				"options": options,
			})
			if err != nil {
				return nil, fmt.Errorf("encode field_options result: %w", err)
			}
			return result, nil
		},
	)
}

// registerAddCommentTool registers the `pejl.add_comment` tool.
func registerAddCommentTool(srv *mcpserver.MCPServer, issues IssueService) {
	srv.AddTool(
		mcp.NewTool(
			"pejl.add_comment",
			mcp.WithDescription("Append one markdown comment to an issue."),
			mcp.WithString("key", mcp.Required(), mcp.Description("Issue key")),
			mcp.WithString("body", mcp.Required(), mcp.Description("Comment body in markdown")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			key, err := req.RequireString("key")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			body, err := req.RequireString("body")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			loaded, err := issues.LoadIssue(ctx, key)
			if err != nil {
				return toolResultFromError(err), nil
			}
			updated, err := issues.AddComment(ctx, loaded.Issue, body)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"issue": toIssueResult(updated),
			})
			if err != nil {
				return nil, fmt.Errorf("encode add_comment result: %w", err)
			}
			return result, nil
		},
	)
}

// registerUpdateLogTool registers the `pejl.update_log` tool.
func registerUpdateLogTool(srv *mcpserver.MCPServer, issues IssueService) {
	srv.AddTool(
		mcp.NewTool(
			"pejl.update_log",
			mcp.WithDescription("List locally journaled field submissions for one issue, newest first."),
			mcp.WithString("key", mcp.Required(), mcp.Description("Issue key")),
			mcp.WithNumber("limit", mcp.Description("Maximum records to return")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			key, err := req.RequireString("key")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			limit := req.GetInt("limit", 50)
			records, err := issues.ListUpdateRecords(ctx, key, limit)
			if err != nil {
				return toolResultFromError(err), nil
			}
			out := make([]map[string]any, 0, len(records))
			for _, record := range records {
				out = append(out, map[string]any{
					"id":           record.ID,
					"issue_key":    record.IssueKey,
					"field":        string(record.Field),
					"old_value":    record.OldValue,
					"new_value":    record.NewValue,
					"submitted_at": record.SubmittedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
				})
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"records": out,
			})
			if err != nil {
				return nil, fmt.Errorf("encode update_log result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, app.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, app.ErrOffline):
		return mcp.NewToolResultError("offline: " + err.Error())
	case errors.Is(err, domain.ErrUnknownField), errors.Is(err, domain.ErrReadOnlyField):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, domain.ErrInvalidSummary),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidBody):
		return mcp.NewToolResultError("invalid_value: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
