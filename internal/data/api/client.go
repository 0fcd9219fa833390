// Package api is the typed client of the backing store REST boundary.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/penwyp/go-fullsnack/internal/core/constants"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/util"
)

// DefaultBaseURL is where the store listens in development
const DefaultBaseURL = "http://localhost:8000/api/v1/"

const maxResponseBytes = 4 << 20

// TokenSource supplies the session token; an empty token means signed out
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource returning a fixed token
type StaticToken string

// Token returns the token
func (t StaticToken) Token() string { return string(t) }

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout on a copy of the HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// Client talks to the backing store
type Client struct {
	baseURL    *url.URL
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates a new Client instance
func NewClient(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must be http or https", baseURL)
	}
	if tokens == nil {
		tokens = StaticToken("")
	}

	c := &Client{
		baseURL: u,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: constants.HTTPTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the resolved base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type request struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	auth   bool
}

// do performs one request and decodes a 2xx body into out (when non-nil)
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	target := c.baseURL.ResolveReference(&url.URL{Path: req.path})
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := sonic.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s body: %w", req.path, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	requestID := util.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set("X-Request-ID", requestID)

	if req.auth {
		token := c.tokens.Token()
		if token == "" {
			return errNoToken
		}
		httpReq.Header.Set("Authorization", "Token "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", req.path, err)
	}

	util.LogDebug("Store request",
		util.F("method", req.method),
		util.F("path", req.path),
		util.F("status", resp.StatusCode),
		util.F("request_id", requestID),
		util.F("duration_ms", time.Since(start).Milliseconds()))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     req.method,
			Path:       req.path,
			Detail:     parseDetail(data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.path, err)
	}
	return nil
}

func idPath(prefix string, id int64, suffix string) string {
	return prefix + strconv.FormatInt(id, 10) + "/" + suffix
}

// Signup creates an account and returns its token
func (c *Client) Signup(ctx context.Context, creds model.Credentials) (model.AuthResponse, error) {
	var resp model.AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "users/signup/", body: creds}, &resp)
	return resp, err
}

// Login exchanges email and password for a token
func (c *Client) Login(ctx context.Context, email, password string) (model.AuthResponse, error) {
	var resp model.AuthResponse
	creds := model.Credentials{Email: email, Password: password}
	err := c.do(ctx, request{method: http.MethodPost, path: "users/login/", body: creds}, &resp)
	return resp, err
}

// Logout revokes the current token
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "users/logout/", auth: true}, nil)
}

// Me returns the signed-in user
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var resp struct {
		User model.User `json:"user"`
	}
	err := c.do(ctx, request{method: http.MethodGet, path: "users/info/", auth: true}, &resp)
	return resp.User, err
}

// ListEntries returns the entries logged on day, newest first. An empty day means today.
func (c *Client) ListEntries(ctx context.Context, day string) ([]model.LogEntry, error) {
	var query url.Values
	if day != "" {
		query = url.Values{"day": {day}}
	}
	var entries []model.LogEntry
	err := c.do(ctx, request{method: http.MethodGet, path: "foods/", query: query, auth: true}, &entries)
	return entries, err
}

// GetEntry returns one entry
func (c *Client) GetEntry(ctx context.Context, id int64) (model.LogEntry, error) {
	var entry model.LogEntry
	err := c.do(ctx, request{method: http.MethodGet, path: idPath("foods/", id, ""), auth: true}, &entry)
	return entry, err
}

// CreateEntry logs a new entry
func (c *Client) CreateEntry(ctx context.Context, entry model.LogEntry) (model.LogEntry, error) {
	var created model.LogEntry
	err := c.do(ctx, request{method: http.MethodPost, path: "foods/", body: entry, auth: true}, &created)
	return created, err
}

// UpdateEntry sends the provided fields of patch
func (c *Client) UpdateEntry(ctx context.Context, id int64, patch model.LogEntryPatch) (model.LogEntry, error) {
	var updated model.LogEntry
	err := c.do(ctx, request{method: http.MethodPut, path: idPath("foods/", id, ""), body: patch, auth: true}, &updated)
	return updated, err
}

// DeleteEntry removes an entry and returns the recomputed daily total
func (c *Client) DeleteEntry(ctx context.Context, id int64) (model.DeleteResult, error) {
	var result model.DeleteResult
	err := c.do(ctx, request{method: http.MethodDelete, path: idPath("foods/", id, ""), auth: true}, &result)
	return result, err
}

// LookupNutrition returns nutrition facts for a food name
func (c *Client) LookupNutrition(ctx context.Context, query string) (model.NutritionItem, error) {
	var resp struct {
		Item *model.NutritionItem `json:"item"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "foods/nutrition/",
		query:  url.Values{"query": {query}},
		auth:   true,
	}, &resp)
	if err != nil {
		return model.NutritionItem{}, err
	}
	if resp.Item == nil {
		return model.NutritionItem{}, fmt.Errorf("%w: no nutrition data for %q", ErrNotFound, query)
	}
	return *resp.Item, nil
}

// ListDays returns daily aggregates, newest first, or the days of one week in date order
func (c *Client) ListDays(ctx context.Context, weekStart string) ([]model.DailyAggregate, error) {
	var query url.Values
	if weekStart != "" {
		query = url.Values{"week_start": {weekStart}}
	}
	var days []model.DailyAggregate
	err := c.do(ctx, request{method: http.MethodGet, path: "dates/days/", query: query, auth: true}, &days)
	return days, err
}

// GetDay returns the aggregate of one date
func (c *Client) GetDay(ctx context.Context, date string) (model.DailyAggregate, error) {
	var day model.DailyAggregate
	err := c.do(ctx, request{method: http.MethodGet, path: "dates/days/" + date + "/", auth: true}, &day)
	return day, err
}

// DailyTotal returns the calorie total of date; a day with nothing logged totals 0
func (c *Client) DailyTotal(ctx context.Context, date string) (int, error) {
	day, err := c.GetDay(ctx, date)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return day.DailyCalorieTotal, nil
}

// ListWeeks returns weekly aggregates, newest first
func (c *Client) ListWeeks(ctx context.Context) ([]model.WeeklyAggregate, error) {
	var weeks []model.WeeklyAggregate
	err := c.do(ctx, request{method: http.MethodGet, path: "dates/weeks/", auth: true}, &weeks)
	return weeks, err
}

// GetWeek returns the aggregate of the week starting on start
func (c *Client) GetWeek(ctx context.Context, start string) (model.WeeklyAggregate, error) {
	var week model.WeeklyAggregate
	err := c.do(ctx, request{method: http.MethodGet, path: "dates/weeks/" + start + "/", auth: true}, &week)
	return week, err
}

// SearchPhotos returns candidate images for a query
func (c *Client) SearchPhotos(ctx context.Context, query string) ([]model.PhotoResult, error) {
	var resp struct {
		Images []model.PhotoResult `json:"images"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "images/search/",
		query:  url.Values{"q": {query}},
	}, &resp)
	return resp.Images, err
}

// SetImage attaches the best photo for query to an entry
func (c *Client) SetImage(ctx context.Context, id int64, query string) (model.SetImageResult, error) {
	var result model.SetImageResult
	body := map[string]string{"q": query}
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   idPath("images/foodlogs/", id, "set/"),
		body:   body,
		auth:   true,
	}, &result)
	return result, err
}
