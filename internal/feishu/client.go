package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is the Feishu Open API endpoint.
const DefaultBaseURL = "https://open.feishu.cn/open-apis"

// DefaultTimeZone is used when no time zone is configured.
const DefaultTimeZone = "Asia/Shanghai"

// requestTimeout bounds every HTTP call to the Feishu API.
const requestTimeout = 30 * time.Second

// tokenSafetyMargin is subtracted from the token lifetime so a token is
// never used right at its expiry deadline.
const tokenSafetyMargin = 2 * time.Minute

// Client provides access to the Feishu task and contact APIs using an
// application credential pair (app id / app secret).
type Client struct {
	appID       string
	appSecret   string
	timeZone    string
	baseURL     string
	http        *http.Client
	refreshHook func(success bool)

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests to point the client
// at a fake server.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTokenRefreshHook registers a callback invoked after every tenant token
// fetch attempt with the outcome. Cache hits do not trigger the hook. Used to
// feed the token refresh counter.
func WithTokenRefreshHook(hook func(success bool)) Option {
	return func(c *Client) {
		c.refreshHook = hook
	}
}

// NewClient creates a new Feishu client for the given credential pair.
// The time zone is used as the default when converting local date-time
// strings to timestamps; if empty it falls back to Asia/Shanghai.
func NewClient(appID, appSecret, timeZone string, opts ...Option) (*Client, error) {
	if appID == "" || appSecret == "" {
		return nil, fmt.Errorf("app_id and app_secret are required")
	}
	if timeZone == "" {
		timeZone = DefaultTimeZone
	}

	c := &Client{
		appID:     appID,
		appSecret: appSecret,
		timeZone:  timeZone,
		baseURL:   DefaultBaseURL,
		http:      &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TimeZone returns the default time zone this client converts local
// date-time strings in.
func (c *Client) TimeZone() string {
	return c.timeZone
}

// TenantAccessToken returns a tenant access token for the configured app
// credentials, fetching a fresh one when the cached token is missing or
// close to expiry.
func (c *Client) TenantAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	var res tokenResponse
	if err := c.send(ctx, http.MethodPost, "/auth/v3/tenant_access_token/internal", "", nil, map[string]any{
		"app_id":     c.appID,
		"app_secret": c.appSecret,
	}, &res); err != nil {
		if apiErr, ok := err.(*APIError); ok {
			apiErr.Op = "auth"
		}
		c.notifyRefresh(false)
		return "", fmt.Errorf("failed to fetch tenant access token: %w", err)
	}
	if res.TenantAccessToken == "" {
		c.notifyRefresh(false)
		return "", &APIError{Op: "auth", Code: res.Code, Msg: "response contained no tenant_access_token"}
	}

	c.token = res.TenantAccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(res.Expire)*time.Second - tokenSafetyMargin)
	c.notifyRefresh(true)
	return c.token, nil
}

func (c *Client) notifyRefresh(success bool) {
	if c.refreshHook != nil {
		c.refreshHook(success)
	}
}

// Validate checks the credential pair by fetching a tenant access token and
// verifies that the configured time zone is a known IANA zone.
func (c *Client) Validate(ctx context.Context) error {
	if _, err := c.TenantAccessToken(ctx); err != nil {
		return fmt.Errorf("failed to validate credentials: %w", err)
	}
	if _, err := loadZone(c.timeZone); err != nil {
		return err
	}
	return nil
}

// CreateTask creates a task.
// API doc: https://open.feishu.cn/document/task-v2/task/create
func (c *Client) CreateTask(ctx context.Context, input TaskInput) (*Envelope, error) {
	payload := map[string]any{"summary": input.Summary}

	if input.Description != "" {
		payload["description"] = input.Description
	}

	if input.DueDate != "" {
		ts, err := ToTimestampString(input.DueDate, c.timeZone)
		if err != nil {
			return nil, err
		}
		payload["due"] = TimeStamp{Timestamp: ts, IsAllDay: input.DueIsAllDay}
	}

	if input.StartTime != "" {
		ts, err := ToTimestampString(input.StartTime, c.timeZone)
		if err != nil {
			return nil, err
		}
		payload["start"] = TimeStamp{Timestamp: ts, IsAllDay: input.StartIsAllDay}
	}

	if input.CompletedAt != "" {
		ts, err := ToTimestampString(input.CompletedAt, c.timeZone)
		if err != nil {
			return nil, err
		}
		payload["completed_at"] = ts
	}

	var members []Member
	for _, id := range input.AssigneeIDs {
		members = append(members, Member{ID: id, Role: RoleAssignee})
	}
	for _, id := range input.FollowerIDs {
		members = append(members, Member{ID: id, Role: RoleFollower})
	}
	if len(members) > 0 {
		payload["members"] = members
	}

	if input.RelativeFireMinute != nil {
		payload["reminders"] = []Reminder{{RelativeFireMinute: *input.RelativeFireMinute}}
	}

	return c.authed(ctx, "create", http.MethodPost, "/task/v2/tasks", "", payload)
}

// UpdateTask patches a task. Only the fields set in input are sent; the
// update_fields list names exactly those fields.
// API doc: https://open.feishu.cn/document/task-v2/task/update
func (c *Client) UpdateTask(ctx context.Context, taskGUID string, input TaskUpdate) (*Envelope, error) {
	if taskGUID == "" {
		return nil, fmt.Errorf("task_guid is required")
	}

	task := map[string]any{}
	var fields []string

	if input.Summary != nil {
		task["summary"] = *input.Summary
		fields = append(fields, "summary")
	}
	if input.Description != nil {
		task["description"] = *input.Description
		fields = append(fields, "description")
	}
	if input.StartTime != nil {
		ts, err := ToTimestampString(*input.StartTime, c.timeZone)
		if err != nil {
			return nil, err
		}
		task["start"] = TimeStamp{Timestamp: ts}
		fields = append(fields, "start")
	}
	if input.DueDate != nil {
		ts, err := ToTimestampString(*input.DueDate, c.timeZone)
		if err != nil {
			return nil, err
		}
		task["due"] = TimeStamp{Timestamp: ts}
		fields = append(fields, "due")
	}
	if input.CompletedAt != nil {
		ts, err := ToTimestampString(*input.CompletedAt, c.timeZone)
		if err != nil {
			return nil, err
		}
		task["completed_at"] = ts
		fields = append(fields, "completed_at")
	}

	payload := map[string]any{
		"task":          task,
		"update_fields": fields,
	}

	return c.authed(ctx, "update", http.MethodPatch, "/task/v2/tasks/"+url.PathEscape(taskGUID), "user_id_type=open_id", payload)
}

// DeleteTask deletes a task.
// API doc: https://open.feishu.cn/document/task-v2/task/delete
func (c *Client) DeleteTask(ctx context.Context, taskGUID string) (*Envelope, error) {
	if taskGUID == "" {
		return nil, fmt.Errorf("task_guid is required")
	}
	return c.authed(ctx, "delete", http.MethodDelete, "/task/v2/tasks/"+url.PathEscape(taskGUID), "", nil)
}

// AddMembers associates users with a task in the given role. When no client
// token is supplied a fresh UUID is generated so the call is idempotent on
// the provider side.
// API doc: https://open.feishu.cn/document/task-v2/task/add_members
func (c *Client) AddMembers(ctx context.Context, taskGUID string, userIDs []string, role, memberType, clientToken string) (*Envelope, error) {
	if taskGUID == "" {
		return nil, fmt.Errorf("task_guid is required")
	}
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("at least one member id is required")
	}
	if role == "" {
		role = RoleFollower
	}
	if memberType == "" {
		memberType = MemberTypeUser
	}
	if clientToken == "" {
		clientToken = uuid.NewString()
	}

	members := make([]Member, 0, len(userIDs))
	for _, id := range userIDs {
		members = append(members, Member{ID: id, Role: role, Type: memberType})
	}

	payload := map[string]any{
		"members":      members,
		"client_token": clientToken,
	}

	return c.authed(ctx, "add_members", http.MethodPost, "/task/v2/tasks/"+url.PathEscape(taskGUID)+"/add_members", "user_id_type=open_id", payload)
}

// BatchGetUserIDs resolves open ids for a list of contacts. Entries
// containing "@" are treated as email addresses, everything else as mobile
// numbers.
// API doc: https://open.feishu.cn/document/server-docs/contact-v3/user/batch_get_id
func (c *Client) BatchGetUserIDs(ctx context.Context, contacts []string) (*Envelope, error) {
	if len(contacts) == 0 {
		return nil, fmt.Errorf("at least one email or phone number is required")
	}

	emails := []string{}
	mobiles := []string{}
	for _, contact := range contacts {
		if strings.Contains(contact, "@") {
			emails = append(emails, contact)
		} else {
			mobiles = append(mobiles, contact)
		}
	}

	payload := map[string]any{
		"emails":           emails,
		"mobiles":          mobiles,
		"include_resigned": false,
	}

	return c.authed(ctx, "batch_get_id", http.MethodPost, "/contact/v3/users/batch_get_id", "user_id_type=open_id", payload)
}

// authed issues an authenticated request and decodes the response envelope.
func (c *Client) authed(ctx context.Context, op, method, path, query string, payload any) (*Envelope, error) {
	token, err := c.TenantAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var env Envelope
	if err := c.send(ctx, method, path, query, map[string]string{
		"Authorization": "Bearer " + token,
	}, payload, &env); err != nil {
		if apiErr, ok := err.(*APIError); ok {
			apiErr.Op = op
		}
		return nil, err
	}
	return &env, nil
}

// send issues one HTTP request against the API and decodes the JSON body
// into out. A non-zero envelope code is returned as an *APIError.
func (c *Client) send(ctx context.Context, method, path, query string, headers map[string]string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request payload: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	u := c.baseURL + path
	if query != "" {
		u += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "feishu-tasks")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid JSON response from Feishu API (HTTP %d): %w", resp.StatusCode, err)
	}

	if coded, ok := out.(interface{ ErrorCode() (int, string) }); ok {
		if code, msg := coded.ErrorCode(); code != 0 {
			return &APIError{Code: code, Msg: msg}
		}
	}

	return nil
}
