// Package httptracker provides the REST client adapter for the remote
// issue tracker.
package httptracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hylla/pejl/internal/app"
	"github.com/hylla/pejl/internal/domain"
)

// maxResponseBodyBytes limits decoded JSON payload size for fail-closed
// response handling.
const maxResponseBodyBytes int64 = 1 << 20

// APIError represents one structured API failure response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Client talks to the tracker's versioned REST API mounted under `/api/v1`.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Options configure the client.
type Options struct {
	// Token is sent as a bearer credential when non-empty.
	Token string
	// Timeout bounds each request. Zero means 10 seconds.
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// New constructs a tracker client rooted at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("httptracker: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("httptracker: parse base URL: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(opts.Token),
		http:    httpClient,
	}, nil
}

type issuePayload struct {
	Key         string           `json:"key"`
	Project     string           `json:"project"`
	Reporter    string           `json:"reporter"`
	Summary     string           `json:"summary"`
	Description string           `json:"description,omitempty"`
	Status      string           `json:"status"`
	Priority    string           `json:"priority"`
	Assignee    string           `json:"assignee,omitempty"`
	Labels      []string         `json:"labels,omitempty"`
	Links       []linkPayload    `json:"links,omitempty"`
	Comments    []commentPayload `json:"comments,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type linkPayload struct {
	Kind      string `json:"kind"`
	TargetKey string `json:"target_key"`
}

type commentPayload struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// GetIssue fetches one issue snapshot by key.
func (c *Client) GetIssue(ctx context.Context, key string) (domain.Issue, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.Issue{}, domain.ErrInvalidKey
	}
	var payload issuePayload
	if err := c.do(ctx, http.MethodGet, "/api/v1/issues/"+url.PathEscape(key), nil, &payload); err != nil {
		return domain.Issue{}, err
	}
	return payload.toDomain()
}

// SearchIssues queries the tracker. An empty query lists the caller's
// recently updated issues.
func (c *Client) SearchIssues(ctx context.Context, query string, limit int) ([]domain.Issue, error) {
	values := url.Values{}
	if q := strings.TrimSpace(query); q != "" {
		values.Set("q", q)
	}
	if limit > 0 {
		values.Set("limit", fmt.Sprintf("%d", limit))
	}
	path := "/api/v1/issues"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var payload struct {
		Issues []issuePayload `json:"issues"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	issues := make([]domain.Issue, 0, len(payload.Issues))
	for _, p := range payload.Issues {
		issue, err := p.toDomain()
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// UpdateField submits one field value and returns the post-update snapshot.
func (c *Client) UpdateField(ctx context.Context, key string, field domain.FieldID, value string) (domain.Issue, error) {
	body := map[string]string{
		"field": string(field),
		"value": value,
	}
	var payload issuePayload
	path := "/api/v1/issues/" + url.PathEscape(key) + "/fields"
	if err := c.do(ctx, http.MethodPatch, path, body, &payload); err != nil {
		return domain.Issue{}, err
	}
	return payload.toDomain()
}

// FieldOptions fetches the allowed values for a choice field.
func (c *Client) FieldOptions(ctx context.Context, field domain.FieldID) ([]string, error) {
	var payload struct {
		Options []string `json:"options"`
	}
	path := "/api/v1/fields/" + url.PathEscape(string(field)) + "/options"
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Options, nil
}

// AddComment posts one comment and returns the refreshed snapshot.
func (c *Client) AddComment(ctx context.Context, key string, body string) (domain.Issue, error) {
	req := map[string]string{"body": body}
	var payload issuePayload
	path := "/api/v1/issues/" + url.PathEscape(key) + "/comments"
	if err := c.do(ctx, http.MethodPost, path, req, &payload); err != nil {
		return domain.Issue{}, err
	}
	return payload.toDomain()
}

// do performs one JSON round trip and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httptracker: encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("httptracker: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isConnectivityError(err) {
			return fmt.Errorf("httptracker: %s %s: %w", method, path, app.ErrOffline)
		}
		return fmt.Errorf("httptracker: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	reader := io.LimitReader(resp.Body, maxResponseBodyBytes)
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, reader)
	}
	if out == nil {
		return nil
	}
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("httptracker: decode response: %w", err)
	}
	return nil
}

// decodeError maps structured tracker failures onto application errors.
func decodeError(statusCode int, body io.Reader) error {
	var envelope ErrorEnvelope
	if err := json.NewDecoder(body).Decode(&envelope); err != nil || envelope.Error.Message == "" {
		envelope.Error.Message = http.StatusText(statusCode)
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", envelope.Error.Message, app.ErrNotFound)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("httptracker: rejected: %s", envelope.Error.Message)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("httptracker: unauthorized: %s", envelope.Error.Message)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", envelope.Error.Message, app.ErrOffline)
	default:
		return fmt.Errorf("httptracker: status %d: %s", statusCode, envelope.Error.Message)
	}
}

// isConnectivityError reports whether err looks like the tracker being
// unreachable rather than a protocol failure.
func isConnectivityError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// toDomain validates the wire payload into a domain snapshot. Timestamps
// are carried through from the tracker rather than stamped locally.
func (p issuePayload) toDomain() (domain.Issue, error) {
	links := make([]domain.Link, 0, len(p.Links))
	for _, l := range p.Links {
		kind, err := domain.ParseLinkKind(l.Kind)
		if err != nil {
			return domain.Issue{}, err
		}
		links = append(links, domain.Link{Kind: kind, TargetKey: l.TargetKey})
	}
	comments := make([]domain.Comment, 0, len(p.Comments))
	for _, c := range p.Comments {
		comments = append(comments, domain.Comment{
			ID:        c.ID,
			Author:    c.Author,
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
		})
	}
	issue, err := domain.NewIssue(domain.IssueInput{
		Key:         p.Key,
		Project:     p.Project,
		Reporter:    p.Reporter,
		Summary:     p.Summary,
		Description: p.Description,
		Status:      p.Status,
		Priority:    domain.Priority(strings.ToLower(strings.TrimSpace(p.Priority))),
		Assignee:    p.Assignee,
		Labels:      p.Labels,
		Links:       links,
		Comments:    comments,
	}, p.CreatedAt)
	if err != nil {
		return domain.Issue{}, fmt.Errorf("httptracker: invalid issue payload: %w", err)
	}
	issue.CreatedAt = p.CreatedAt.UTC()
	issue.UpdatedAt = p.UpdatedAt.UTC()
	return issue, nil
}
