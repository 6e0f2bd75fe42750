// Package feishu provides a client for the Feishu (Lark) task and contact
// Open APIs.
//
// This package wraps the task-v2 and contact-v3 endpoints and provides
// functionality for:
//   - Creating, updating and deleting tasks
//   - Associating members (assignees and followers) with a task
//   - Resolving user open ids from email addresses and phone numbers
//
// # Authentication
//
// All authenticated calls use a tenant access token obtained from the app
// id / app secret credential pair. The token is fetched lazily and cached
// until shortly before its expiry deadline, so callers never manage tokens
// themselves.
//
// # Input conventions
//
// Date-time parameters are local wall-clock strings ("2006-01-02 15:04:05")
// interpreted in the client's configured time zone and sent to the API as
// UTC millisecond-epoch strings. Identifier lists arriving from tool callers
// can be JSON arrays, comma-separated strings or real slices; NormalizeList
// turns any of those into a clean []string.
//
// # Example Usage
//
//	client, err := feishu.NewClient(appID, appSecret, "Asia/Shanghai")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := client.CreateTask(ctx, feishu.TaskInput{
//	    Summary: "Prepare launch checklist",
//	    DueDate: "2023-05-01 14:30:00",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	guid := res.TaskGUID()
//
//	_, err = client.AddMembers(ctx, guid, []string{"ou_abc"}, feishu.RoleAssignee, feishu.MemberTypeUser, "")
package feishu
