package task_tools

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

// taskResult is the JSON shape returned to the caller: the provider envelope
// plus the task GUID when one is known.
type taskResult struct {
	Code     int             `json:"code"`
	Msg      string          `json:"msg"`
	Data     json.RawMessage `json:"data,omitempty"`
	TaskGUID string          `json:"task_guid,omitempty"`
}

// envelopeResult renders a provider envelope as an indented JSON tool result.
func envelopeResult(env *feishu.Envelope, taskGUID string) (*mcp.CallToolResult, error) {
	result, err := json.MarshalIndent(taskResult{
		Code:     env.Code,
		Msg:      env.Msg,
		Data:     env.Data,
		TaskGUID: taskGUID,
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// optionalString returns the string argument as a pointer, or nil when the
// argument is absent. Used for PATCH semantics where "" and "not provided"
// differ.
func optionalString(args map[string]interface{}, key string) *string {
	if v, ok := args[key].(string); ok {
		return &v
	}
	return nil
}

// RegisterTaskTools registers all task-related tools with the MCP server.
// task_create is always available; task_update, task_delete and
// task_add_members are destructive and require write mode.
func RegisterTaskTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	registerCreateTool(s, sc)

	if !readOnly {
		registerUpdateTool(s, sc)
		registerDeleteTool(s, sc)
		registerAddMembersTool(s, sc)
	}

	return nil
}

func registerCreateTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	createTool := mcp.NewTool("task_create",
		mcp.WithDescription("Create a Feishu task with optional schedule, members and reminder"),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("The task title"),
		),
		mcp.WithString("description",
			mcp.Description("The task description"),
		),
		mcp.WithString("start_time",
			mcp.Description("Start time as 'YYYY-MM-DD HH:MM:SS' in the configured time zone"),
		),
		mcp.WithBoolean("start_time_is_all_day",
			mcp.Description("Whether the start time is an all-day marker"),
		),
		mcp.WithString("due_date",
			mcp.Description("Due time as 'YYYY-MM-DD HH:MM:SS' in the configured time zone"),
		),
		mcp.WithBoolean("end_time_is_all_day",
			mcp.Description("Whether the due time is an all-day marker"),
		),
		mcp.WithString("completed_at",
			mcp.Description("Completion time as 'YYYY-MM-DD HH:MM:SS'. Sets the task as completed at that instant."),
		),
		mcp.WithNumber("relative_fire_minute",
			mcp.Description("Reminder offset in minutes relative to the due time"),
		),
		mcp.WithString("assignee_ids",
			mcp.Description("Open IDs to assign, as a JSON array or comma-separated string"),
		),
		mcp.WithString("follower_ids",
			mcp.Description("Open IDs to add as followers, as a JSON array or comma-separated string"),
		),
	)

	s.AddTool(createTool, common.InstrumentedToolHandlerWithService("task_create", "task", "create", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			summary, _ := args["summary"].(string)
			if summary == "" {
				return mcp.NewToolResultError("summary is required"), nil
			}

			input := feishu.TaskInput{
				Summary:     summary,
				AssigneeIDs: feishu.NormalizeList(args["assignee_ids"]),
				FollowerIDs: feishu.NormalizeList(args["follower_ids"]),
			}
			input.Description, _ = args["description"].(string)
			input.StartTime, _ = args["start_time"].(string)
			input.StartIsAllDay, _ = args["start_time_is_all_day"].(bool)
			input.DueDate, _ = args["due_date"].(string)
			input.DueIsAllDay, _ = args["end_time_is_all_day"].(bool)
			input.CompletedAt, _ = args["completed_at"].(string)

			if v, ok := args["relative_fire_minute"].(float64); ok {
				minute := int(v)
				input.RelativeFireMinute = &minute
			}

			client, err := sc.FeishuClient()
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			env, err := client.CreateTask(ctx, input)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to create task: %v", err)), nil
			}

			return envelopeResult(env, env.TaskGUID())
		}))
}

func registerUpdateTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	updateTool := mcp.NewTool("task_update",
		mcp.WithDescription("Update fields of an existing Feishu task. Only provided fields are changed."),
		mcp.WithString("task_guid",
			mcp.Required(),
			mcp.Description("The GUID of the task to update"),
		),
		mcp.WithString("summary",
			mcp.Description("New task title"),
		),
		mcp.WithString("description",
			mcp.Description("New task description"),
		),
		mcp.WithString("start_time",
			mcp.Description("New start time as 'YYYY-MM-DD HH:MM:SS' in the configured time zone"),
		),
		mcp.WithString("due_date",
			mcp.Description("New due time as 'YYYY-MM-DD HH:MM:SS' in the configured time zone"),
		),
		mcp.WithString("completed_at",
			mcp.Description("Completion time as 'YYYY-MM-DD HH:MM:SS'"),
		),
	)

	s.AddTool(updateTool, common.InstrumentedToolHandlerWithService("task_update", "task", "update", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			taskGUID, _ := args["task_guid"].(string)
			if taskGUID == "" {
				return mcp.NewToolResultError("task_guid is required"), nil
			}

			update := feishu.TaskUpdate{
				Summary:     optionalString(args, "summary"),
				Description: optionalString(args, "description"),
				StartTime:   optionalString(args, "start_time"),
				DueDate:     optionalString(args, "due_date"),
				CompletedAt: optionalString(args, "completed_at"),
			}

			client, err := sc.FeishuClient()
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			env, err := client.UpdateTask(ctx, taskGUID, update)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to update task: %v", err)), nil
			}

			return envelopeResult(env, taskGUID)
		}))
}

func registerDeleteTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	deleteTool := mcp.NewTool("task_delete",
		mcp.WithDescription("Delete a Feishu task"),
		mcp.WithString("task_guid",
			mcp.Required(),
			mcp.Description("The GUID of the task to delete"),
		),
	)

	s.AddTool(deleteTool, common.InstrumentedToolHandlerWithService("task_delete", "task", "delete", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			taskGUID, _ := args["task_guid"].(string)
			if taskGUID == "" {
				return mcp.NewToolResultError("task_guid is required"), nil
			}

			client, err := sc.FeishuClient()
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			env, err := client.DeleteTask(ctx, taskGUID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to delete task: %v", err)), nil
			}

			return envelopeResult(env, taskGUID)
		}))
}

func registerAddMembersTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	addMembersTool := mcp.NewTool("task_add_members",
		mcp.WithDescription("Add members to a Feishu task as assignees or followers"),
		mcp.WithString("task_guid",
			mcp.Required(),
			mcp.Description("The GUID of the task"),
		),
		mcp.WithString("member_ids",
			mcp.Required(),
			mcp.Description("Open IDs to add, as a JSON array or comma-separated string"),
		),
		mcp.WithString("member_role",
			mcp.Description("Member role: 'assignee' or 'follower' (default: 'follower')"),
		),
		mcp.WithString("member_type",
			mcp.Description("Member type: 'user' or 'app' (default: 'user')"),
		),
		mcp.WithString("client_token",
			mcp.Description("Idempotency token. A fresh UUID is generated when omitted."),
		),
	)

	s.AddTool(addMembersTool, common.InstrumentedToolHandlerWithService("task_add_members", "task", "add_members", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			taskGUID, _ := args["task_guid"].(string)
			if taskGUID == "" {
				return mcp.NewToolResultError("task_guid is required"), nil
			}

			memberIDs := feishu.NormalizeList(args["member_ids"])
			if len(memberIDs) == 0 {
				return mcp.NewToolResultError("at least one member id is required"), nil
			}

			role, _ := args["member_role"].(string)
			if role != "" && role != feishu.RoleAssignee && role != feishu.RoleFollower {
				return mcp.NewToolResultError(fmt.Sprintf("invalid member_role %q: must be 'assignee' or 'follower'", role)), nil
			}

			memberType, _ := args["member_type"].(string)
			if memberType != "" && memberType != feishu.MemberTypeUser && memberType != feishu.MemberTypeApp {
				return mcp.NewToolResultError(fmt.Sprintf("invalid member_type %q: must be 'user' or 'app'", memberType)), nil
			}

			clientToken, _ := args["client_token"].(string)

			client, err := sc.FeishuClient()
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			env, err := client.AddMembers(ctx, taskGUID, memberIDs, role, memberType, clientToken)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to add members: %v", err)), nil
			}

			return envelopeResult(env, taskGUID)
		}))
}
