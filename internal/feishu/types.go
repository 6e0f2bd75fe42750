package feishu

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Member roles accepted by the task API.
const (
	RoleAssignee = "assignee"
	RoleFollower = "follower"
)

// Member types accepted by the task API.
const (
	MemberTypeUser = "user"
	MemberTypeApp  = "app"
)

// Envelope is the common Feishu response wrapper. Data is kept raw so tools
// can pass the provider payload through unchanged.
type Envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrorCode reports the envelope status for error translation.
func (e *Envelope) ErrorCode() (int, string) {
	return e.Code, e.Msg
}

// TaskGUID extracts the created task's GUID from a create response.
// Returns an empty string when the response carries no task.
func (e *Envelope) TaskGUID() string {
	var data struct {
		Task struct {
			GUID string `json:"guid"`
		} `json:"task"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return ""
	}
	return data.Task.GUID
}

// tokenResponse is the body of the tenant_access_token endpoint.
type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

func (r *tokenResponse) ErrorCode() (int, string) {
	return r.Code, r.Msg
}

// APIError is a Feishu API failure: a response envelope with a non-zero
// status code.
type APIError struct {
	// Op is the client operation that failed (e.g. "create", "add_members").
	Op string

	// Code is the provider status code from the response envelope.
	Code int

	// Msg is the provider error message.
	Msg string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("feishu %s: API error %d: %s", e.Op, e.Code, e.Msg)
	}
	return fmt.Sprintf("feishu: API error %d: %s", e.Code, e.Msg)
}

// TimeStamp is the start/due field shape of the task API.
type TimeStamp struct {
	Timestamp string `json:"timestamp"`
	IsAllDay  bool   `json:"is_all_day"`
}

// Member associates a user (or app) with a task in a role.
type Member struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Type string `json:"type,omitempty"`
}

// Reminder fires relative to the task due time.
type Reminder struct {
	RelativeFireMinute int `json:"relative_fire_minute"`
}

// TaskInput carries the parameters for creating a task. Date-time fields are
// local wall-clock strings ("2006-01-02 15:04:05") in the client's time zone.
type TaskInput struct {
	Summary            string
	Description        string
	StartTime          string
	StartIsAllDay      bool
	DueDate            string
	DueIsAllDay        bool
	CompletedAt        string
	RelativeFireMinute *int
	AssigneeIDs        []string
	FollowerIDs        []string
}

// TaskUpdate carries the parameters for patching a task. Nil fields are left
// untouched; set fields are named in the request's update_fields list.
type TaskUpdate struct {
	Summary     *string
	Description *string
	StartTime   *string
	DueDate     *string
	CompletedAt *string
}

// ExtractUserIDs pulls user open ids out of a batch_get_id response body.
// The endpoint has shipped several response shapes over time, so every
// plausible list key is scanned; ids are de-duplicated preserving order.
func ExtractUserIDs(data json.RawMessage) []string {
	if len(data) == 0 {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil
	}

	var buckets [][]any
	switch v := decoded.(type) {
	case []any:
		buckets = append(buckets, v)
	case map[string]any:
		for _, key := range []string{"user_list", "user_infos", "users", "items", "entities", "results", "data"} {
			if list, ok := v[key].([]any); ok {
				buckets = append(buckets, list)
			}
		}
	}

	seen := make(map[string]bool)
	var ids []string
	for _, bucket := range buckets {
		for _, item := range bucket {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range []string{"open_id", "user_id", "id"} {
				id, ok := entry[key].(string)
				if !ok || strings.TrimSpace(id) == "" {
					continue
				}
				id = strings.TrimSpace(id)
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
				break
			}
		}
	}

	return ids
}
