package feishu

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a minimal Feishu API double. It records request bodies by path
// and serves canned envelope responses.
type fakeAPI struct {
	t          *testing.T
	mux        *http.ServeMux
	server     *httptest.Server
	tokenCalls int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	f := &fakeAPI{t: t, mux: http.NewServeMux()}
	f.mux.HandleFunc("POST /auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls++
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["app_id"] != "cli_test" || body["app_secret"] != "s3cret" {
			writeJSON(w, map[string]any{"code": 10003, "msg": "invalid app_id or app_secret"})
			return
		}
		writeJSON(w, map[string]any{
			"code":                0,
			"msg":                 "ok",
			"tenant_access_token": "t-token",
			"expire":              7200,
		})
	})
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient("cli_test", "s3cret", "Asia/Shanghai", WithBaseURL(f.server.URL))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app_id and app_secret are required")

	c, err := NewClient("cli_test", "s3cret", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeZone, c.TimeZone())
}

func TestTenantAccessTokenCaching(t *testing.T) {
	api := newFakeAPI(t)
	c := api.client(t)
	ctx := context.Background()

	token, err := c.TenantAccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t-token", token)

	// Second call must come from the cache.
	_, err = c.TenantAccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, api.tokenCalls)
}

func TestTenantAccessTokenBadCredentials(t *testing.T) {
	api := newFakeAPI(t)
	c, err := NewClient("cli_test", "wrong", "Asia/Shanghai", WithBaseURL(api.server.URL))
	require.NoError(t, err)

	_, err = c.TenantAccessToken(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 10003, apiErr.Code)
	assert.Equal(t, "auth", apiErr.Op)
}

func TestTenantAccessTokenRefreshHook(t *testing.T) {
	api := newFakeAPI(t)

	var outcomes []bool
	hook := WithTokenRefreshHook(func(success bool) {
		outcomes = append(outcomes, success)
	})

	c, err := NewClient("cli_test", "s3cret", "Asia/Shanghai", WithBaseURL(api.server.URL), hook)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.TenantAccessToken(ctx)
	require.NoError(t, err)

	// Cache hits must not fire the hook.
	_, err = c.TenantAccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, outcomes)

	outcomes = nil
	bad, err := NewClient("cli_test", "wrong", "Asia/Shanghai", WithBaseURL(api.server.URL), hook)
	require.NoError(t, err)

	_, err = bad.TenantAccessToken(ctx)
	require.Error(t, err)
	assert.Equal(t, []bool{false}, outcomes)
}

func TestCreateTask(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("POST /task/v2/tasks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t-token", r.Header.Get("Authorization"))

		body := decodeBody(t, r)
		assert.Equal(t, "Prepare launch", body["summary"])
		assert.Equal(t, "checklist", body["description"])

		due, ok := body["due"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "1682922600000", due["timestamp"])
		assert.Equal(t, true, due["is_all_day"])

		members, ok := body["members"].([]any)
		require.True(t, ok)
		require.Len(t, members, 2)
		first := members[0].(map[string]any)
		assert.Equal(t, "ou_1", first["id"])
		assert.Equal(t, "assignee", first["role"])
		second := members[1].(map[string]any)
		assert.Equal(t, "ou_2", second["id"])
		assert.Equal(t, "follower", second["role"])

		reminders, ok := body["reminders"].([]any)
		require.True(t, ok)
		require.Len(t, reminders, 1)
		assert.Equal(t, float64(30), reminders[0].(map[string]any)["relative_fire_minute"])

		writeJSON(w, map[string]any{
			"code": 0,
			"msg":  "ok",
			"data": map[string]any{"task": map[string]any{"guid": "guid-123"}},
		})
	})

	c := api.client(t)
	fire := 30
	res, err := c.CreateTask(context.Background(), TaskInput{
		Summary:            "Prepare launch",
		Description:        "checklist",
		DueDate:            "2023-05-01 14:30:00",
		DueIsAllDay:        true,
		RelativeFireMinute: &fire,
		AssigneeIDs:        []string{"ou_1"},
		FollowerIDs:        []string{"ou_2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "guid-123", res.TaskGUID())
}

func TestCreateTaskOmitsUnsetFields(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("POST /task/v2/tasks", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "Minimal", body["summary"])
		for _, key := range []string{"description", "due", "start", "completed_at", "members", "reminders"} {
			assert.NotContains(t, body, key)
		}
		writeJSON(w, map[string]any{"code": 0, "msg": "ok", "data": map[string]any{}})
	})

	c := api.client(t)
	res, err := c.CreateTask(context.Background(), TaskInput{Summary: "Minimal"})
	require.NoError(t, err)
	assert.Equal(t, "", res.TaskGUID())
}

func TestUpdateTaskFieldMask(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("PATCH /task/v2/tasks/guid-123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open_id", r.URL.Query().Get("user_id_type"))

		body := decodeBody(t, r)
		fields, ok := body["update_fields"].([]any)
		require.True(t, ok)
		assert.ElementsMatch(t, []any{"summary", "due"}, fields)

		task := body["task"].(map[string]any)
		assert.Equal(t, "Renamed", task["summary"])
		due := task["due"].(map[string]any)
		assert.Equal(t, "1682922600000", due["timestamp"])
		assert.Equal(t, false, due["is_all_day"])
		assert.NotContains(t, task, "description")

		writeJSON(w, map[string]any{"code": 0, "msg": "ok", "data": map[string]any{}})
	})

	c := api.client(t)
	summary := "Renamed"
	due := "2023-05-01 14:30:00"
	_, err := c.UpdateTask(context.Background(), "guid-123", TaskUpdate{
		Summary: &summary,
		DueDate: &due,
	})
	require.NoError(t, err)
}

func TestUpdateTaskRequiresGUID(t *testing.T) {
	api := newFakeAPI(t)
	c := api.client(t)

	_, err := c.UpdateTask(context.Background(), "", TaskUpdate{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task_guid is required")
}

func TestDeleteTask(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("DELETE /task/v2/tasks/guid-123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t-token", r.Header.Get("Authorization"))
		writeJSON(w, map[string]any{"code": 0, "msg": "ok"})
	})

	c := api.client(t)
	_, err := c.DeleteTask(context.Background(), "guid-123")
	require.NoError(t, err)
}

func TestDeleteTaskAPIError(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("DELETE /task/v2/tasks/gone", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"code": 1470402, "msg": "task not found"})
	})

	c := api.client(t)
	_, err := c.DeleteTask(context.Background(), "gone")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 1470402, apiErr.Code)
	assert.Equal(t, "delete", apiErr.Op)
	assert.Contains(t, apiErr.Error(), "task not found")
}

func TestAddMembers(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("POST /task/v2/tasks/guid-123/add_members", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open_id", r.URL.Query().Get("user_id_type"))

		body := decodeBody(t, r)
		members := body["members"].([]any)
		require.Len(t, members, 2)
		first := members[0].(map[string]any)
		assert.Equal(t, "ou_1", first["id"])
		assert.Equal(t, "assignee", first["role"])
		assert.Equal(t, "user", first["type"])

		// A client token is always present, generated when absent.
		token, ok := body["client_token"].(string)
		require.True(t, ok)
		assert.NotEmpty(t, token)

		writeJSON(w, map[string]any{"code": 0, "msg": "ok", "data": map[string]any{}})
	})

	c := api.client(t)
	_, err := c.AddMembers(context.Background(), "guid-123", []string{"ou_1", "ou_2"}, RoleAssignee, "", "")
	require.NoError(t, err)
}

func TestAddMembersValidation(t *testing.T) {
	api := newFakeAPI(t)
	c := api.client(t)
	ctx := context.Background()

	_, err := c.AddMembers(ctx, "", []string{"ou_1"}, "", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task_guid is required")

	_, err = c.AddMembers(ctx, "guid-123", nil, "", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one member id")
}

func TestBatchGetUserIDs(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("POST /contact/v3/users/batch_get_id", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open_id", r.URL.Query().Get("user_id_type"))

		body := decodeBody(t, r)
		assert.ElementsMatch(t, []any{"jane@example.com"}, body["emails"])
		assert.ElementsMatch(t, []any{"+8613800138000"}, body["mobiles"])
		assert.Equal(t, false, body["include_resigned"])

		writeJSON(w, map[string]any{
			"code": 0,
			"msg":  "ok",
			"data": map[string]any{
				"user_list": []map[string]any{
					{"user_id": "ou_1", "email": "jane@example.com"},
					{"user_id": "ou_2", "mobile": "+8613800138000"},
				},
			},
		})
	})

	c := api.client(t)
	res, err := c.BatchGetUserIDs(context.Background(), []string{"jane@example.com", "+8613800138000"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ou_1", "ou_2"}, ExtractUserIDs(res.Data))
}

func TestBatchGetUserIDsRequiresContacts(t *testing.T) {
	api := newFakeAPI(t)
	c := api.client(t)

	_, err := c.BatchGetUserIDs(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one email or phone")
}

func TestSendInvalidJSON(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("DELETE /task/v2/tasks/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	c := api.client(t)
	_, err := c.DeleteTask(context.Background(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON response")
}

func TestExtractUserIDs(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected []string
	}{
		{
			name:     "user_list shape",
			data:     `{"user_list": [{"user_id": "ou_1"}, {"user_id": "ou_2"}]}`,
			expected: []string{"ou_1", "ou_2"},
		},
		{
			name:     "open_id preferred over user_id",
			data:     `{"user_infos": [{"open_id": "ou_open", "user_id": "ou_user"}]}`,
			expected: []string{"ou_open"},
		},
		{
			name:     "empty open_id falls through",
			data:     `{"users": [{"open_id": "", "user_id": "ou_user"}]}`,
			expected: []string{"ou_user"},
		},
		{
			name:     "duplicates removed preserving order",
			data:     `{"items": [{"id": "ou_1"}, {"id": "ou_2"}, {"id": "ou_1"}]}`,
			expected: []string{"ou_1", "ou_2"},
		},
		{
			name:     "top-level array",
			data:     `[{"open_id": "ou_1"}]`,
			expected: []string{"ou_1"},
		},
		{
			name:     "nothing usable",
			data:     `{"total": 2}`,
			expected: nil,
		},
		{
			name:     "empty data",
			data:     ``,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractUserIDs(json.RawMessage(tt.data))
			assert.Equal(t, tt.expected, result)
		})
	}
}
