package contact_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/larkmcp/feishu-tasks/internal/feishu"
	"github.com/larkmcp/feishu-tasks/internal/server"
	"github.com/larkmcp/feishu-tasks/internal/tools/common"
)

// lookupResult is the JSON shape returned to the caller: the provider
// envelope plus the open IDs extracted from it for convenience.
type lookupResult struct {
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data,omitempty"`
	UserIDs []string        `json:"user_ids,omitempty"`
}

// RegisterContactTools registers contact lookup tools with the MCP server.
// Lookups are read-only and are registered regardless of write mode.
func RegisterContactTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	registerGetUserIDsTool(s, sc)
	return nil
}

func registerGetUserIDsTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	getUserIDsTool := mcp.NewTool("contact_get_user_ids",
		mcp.WithDescription("Resolve Feishu user open IDs from email addresses or mobile numbers"),
		mcp.WithString("email_or_phone",
			mcp.Required(),
			mcp.Description("Emails or mobile numbers to resolve, as a JSON array or comma-separated string"),
		),
	)

	s.AddTool(getUserIDsTool, common.InstrumentedToolHandlerWithService("contact_get_user_ids", "contact", "batch_get_id", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			contacts := feishu.NormalizeList(args["email_or_phone"])
			if len(contacts) == 0 {
				return mcp.NewToolResultError("at least one email or phone number is required"), nil
			}

			client, err := sc.FeishuClient()
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			env, err := client.BatchGetUserIDs(ctx, contacts)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to look up user IDs: %v", err)), nil
			}

			result, err := json.MarshalIndent(lookupResult{
				Code:    env.Code,
				Msg:     env.Msg,
				Data:    env.Data,
				UserIDs: feishu.ExtractUserIDs(env.Data),
			}, "", "  ")
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
			}

			return mcp.NewToolResultText(string(result)), nil
		}))
}
