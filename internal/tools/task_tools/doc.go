// Package task_tools provides MCP tools for managing Feishu tasks.
//
// This package implements MCP (Model Context Protocol) tools that wrap the
// Feishu task API client, providing task management capabilities for AI
// assistants.
//
// # Available Tools
//
//   - task_create: Create a task with optional schedule, members and reminder
//   - task_update: Update fields of an existing task (field-mask semantics)
//   - task_delete: Delete a task
//   - task_add_members: Add assignees or followers to a task
//
// # Write Gating
//
// task_create is always registered. task_update, task_delete and
// task_add_members modify or destroy existing data and are only registered
// when the server runs in write mode (--yolo).
//
// # Input Coercion
//
// Identifier list parameters (assignee_ids, follower_ids, member_ids) accept
// either a JSON array string or a comma-separated string; both are normalized
// via feishu.NormalizeList. Date-time parameters are local wall-clock strings
// in the server's configured time zone.
package task_tools
