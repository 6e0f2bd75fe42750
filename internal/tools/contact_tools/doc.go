// Package contact_tools provides MCP tools for Feishu contact lookups.
//
// The single tool, contact_get_user_ids, resolves email addresses and
// mobile numbers to user open IDs via the contact batch_get_id endpoint.
// The open IDs are what the task tools expect for assignee, follower and
// member parameters.
//
// Lookups never modify data, so the tool is registered in both read-only
// and write mode.
package contact_tools
