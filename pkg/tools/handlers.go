package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/sparky/pkg/llm"
	"github.com/papercomputeco/sparky/pkg/store"
)

const (
	DefaultFilesLimit    = 5
	DefaultMessagesLimit = 10

	// maxMessageChars bounds each message body in get_messages output.
	maxMessageChars = 100
)

// UsersArgs are the arguments of get_users.
type UsersArgs struct {
	Status   string `json:"status,omitempty" jsonschema:"Filter by 'online' or 'offline'. Omit for all users."`
	Username string `json:"username,omitempty" jsonschema:"Search for a specific user by username."`
}

// FilesArgs are the arguments of get_files.
type FilesArgs struct {
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of files to return. Default is 5."`
	Type  string `json:"type,omitempty" jsonschema:"Filter by file type like 'image' or 'pdf' or 'video'."`
}

// MessagesArgs are the arguments of get_messages.
type MessagesArgs struct {
	Limit  int    `json:"limit,omitempty" jsonschema:"Number of messages to return. Default is 10."`
	Sender string `json:"sender,omitempty" jsonschema:"Filter messages by sender username."`
}

var usersDeclaration = llm.ToolDeclaration{
	Name:        GetUsers,
	Description: "Get information about users in the ChillSpace chat application. Can list all users or filter by online status.",
	Parameters: map[string]llm.ParameterSpec{
		"status":   {Type: llm.ParamString, Description: "Filter by 'online' or 'offline'. Omit for all users."},
		"username": {Type: llm.ParamString, Description: "Search for a specific user by username."},
	},
}

var filesDeclaration = llm.ToolDeclaration{
	Name:        GetFiles,
	Description: "Get a list of files shared in the ChillSpace chat.",
	Parameters: map[string]llm.ParameterSpec{
		"limit": {Type: llm.ParamInteger, Description: "Maximum number of files to return. Default is 5."},
		"type":  {Type: llm.ParamString, Description: "Filter by file type like 'image', 'pdf', 'video'."},
	},
}

var messagesDeclaration = llm.ToolDeclaration{
	Name:        GetMessages,
	Description: "Get recent chat messages from the group chat.",
	Parameters: map[string]llm.ParameterSpec{
		"limit":  {Type: llm.ParamInteger, Description: "Number of messages to return. Default is 10."},
		"sender": {Type: llm.ParamString, Description: "Filter messages by sender username."},
	},
}

// Users implements get_users. An exact username match takes precedence over
// the status filter.
func (r *Registry) Users(ctx context.Context, args UsersArgs) (string, error) {
	var (
		users []store.User
		err   error
	)

	switch {
	case args.Username != "":
		var u *store.User
		u, err = r.collab.Users.FindByUsername(ctx, args.Username)
		var notFound store.ErrNotFound
		if errors.As(err, &notFound) {
			err = nil
		}
		if u != nil {
			users = []store.User{*u}
		}
	case strings.EqualFold(args.Status, "online"):
		users, err = r.collab.Users.ListByOnline(ctx, true)
	case strings.EqualFold(args.Status, "offline"):
		users, err = r.collab.Users.ListByOnline(ctx, false)
	default:
		users, err = r.collab.Users.ListUsers(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("lookup users: %w", err)
	}

	if len(users) == 0 {
		return "No users found matching the criteria.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d user(s):\n", len(users))
	for _, u := range users {
		status := "[offline]"
		if u.Online {
			status = "[online]"
		}
		fmt.Fprintf(&sb, "- %s (%s) %s", u.Username, u.Role, status)
		if u.Banned {
			sb.WriteString(" [BANNED]")
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// Files implements get_files. The type filter is applied after the limit:
// only the newest limit files are inspected, so a narrow filter may return
// fewer than limit files even when older matches exist.
func (r *Registry) Files(ctx context.Context, args FilesArgs) (string, error) {
	limit := clampLimit(args.Limit, DefaultFilesLimit)

	files, err := r.collab.Files.RecentFiles(ctx, limit)
	if err != nil {
		return "", fmt.Errorf("list files: %w", err)
	}

	if args.Type != "" {
		filtered := files[:0:0]
		for _, f := range files {
			if f.ContentType != "" && containsFold(f.ContentType, args.Type) {
				filtered = append(filtered, f)
			}
		}
		files = filtered
	}

	if len(files) == 0 {
		return "No files found.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d file(s):\n", len(files))
	for _, f := range files {
		fmt.Fprintf(&sb, "- %s (%s) by %s\n", f.Filename, formatFileSize(f.Size), f.UploadedBy)
	}
	return sb.String(), nil
}

// Messages implements get_messages. Like Files, the sender filter is applied
// after the limit.
func (r *Registry) Messages(ctx context.Context, args MessagesArgs) (string, error) {
	limit := clampLimit(args.Limit, DefaultMessagesLimit)

	messages, err := r.collab.Messages.RecentMessages(ctx, limit)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}

	if args.Sender != "" {
		filtered := messages[:0:0]
		for _, m := range messages {
			if m.Sender != "" && containsFold(m.Sender, args.Sender) {
				filtered = append(filtered, m)
			}
		}
		messages = filtered
	}

	if len(messages) == 0 {
		return "No messages found.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent %d message(s):\n", len(messages))
	for _, m := range messages {
		fmt.Fprintf(&sb, "- [%s]: %s\n", m.Sender, truncate(m.Content, maxMessageChars))
	}
	return sb.String(), nil
}

func formatFileSize(bytes int64) string {
	switch {
	case bytes <= 0:
		return "unknown size"
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%d KB", bytes/1024)
	default:
		return fmt.Sprintf("%d MB", bytes/(1024*1024))
	}
}

// truncate cuts s to maxLen runes, appending an ellipsis when shortened.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
