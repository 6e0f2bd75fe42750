package contact_tools

import (
	"context"
	"encoding/json"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/larkmcp/feishu-tasks/internal/feishu"
	"github.com/larkmcp/feishu-tasks/internal/server"
)

func newTestServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), "cli_test", "s3cret", "UTC")
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestRegisterContactTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "0.0.1")
	sc := newTestServerContext(t)

	if err := RegisterContactTools(s, sc); err != nil {
		t.Fatalf("RegisterContactTools() error = %v", err)
	}
}

func TestLookupResult_Encoding(t *testing.T) {
	data := json.RawMessage(`{"user_list":[{"user_id":"ou_abc","email":"a@example.com"},{"user_id":"","mobile":"13800000000"}]}`)

	raw, err := json.MarshalIndent(lookupResult{
		Code:    0,
		Msg:     "success",
		Data:    data,
		UserIDs: feishu.ExtractUserIDs(data),
	}, "", "  ")
	if err != nil {
		t.Fatalf("failed to encode result: %v", err)
	}

	var decoded struct {
		Code    int      `json:"code"`
		Msg     string   `json:"msg"`
		UserIDs []string `json:"user_ids"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if decoded.Code != 0 || decoded.Msg != "success" {
		t.Errorf("decoded envelope = %+v", decoded)
	}
	if len(decoded.UserIDs) != 1 || decoded.UserIDs[0] != "ou_abc" {
		t.Errorf("user_ids = %v, want [ou_abc]", decoded.UserIDs)
	}
}

func TestLookupResult_EmptyOmitted(t *testing.T) {
	raw, err := json.Marshal(lookupResult{Code: 0, Msg: "success"})
	if err != nil {
		t.Fatalf("failed to encode result: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if _, ok := decoded["user_ids"]; ok {
		t.Error("user_ids should be omitted when empty")
	}
	if _, ok := decoded["data"]; ok {
		t.Error("data should be omitted when empty")
	}
}
