// Package store declares the read-only data collaborators the assistant tools
// query: the user directory, the shared-file catalog and the chat message log.
// The surrounding application owns these records; sparky never mutates them.
package store

import (
	"context"
	"time"
)

// User is a chat member as seen by the user directory.
type User struct {
	ID        int64
	Username  string
	Email     string
	Role      string
	Online    bool
	Banned    bool
	LastSeen  time.Time
	CreatedAt time.Time
}

// SharedFile is the metadata of a file uploaded to the chat.
type SharedFile struct {
	ID               int64
	Filename         string
	OriginalFilename string
	ContentType      string

	// Size in bytes; zero when unknown.
	Size        int64
	UploadedBy  string
	UploadedAt  time.Time
	Description string
}

// Message is a single chat message.
type Message struct {
	ID         int64
	Type       string
	Content    string
	Sender     string
	SenderRole string
	Timestamp  time.Time
}

// UserDirectory looks up chat members.
type UserDirectory interface {
	// FindByUsername returns the user with exactly this username, or ErrNotFound.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// ListUsers returns every user.
	ListUsers(ctx context.Context) ([]User, error)

	// ListByOnline returns the users whose online flag equals online.
	ListByOnline(ctx context.Context, online bool) ([]User, error)
}

// FileCatalog lists shared file metadata.
type FileCatalog interface {
	// RecentFiles returns at most limit files, most recently uploaded first.
	RecentFiles(ctx context.Context, limit int) ([]SharedFile, error)
}

// MessageLog lists chat messages.
type MessageLog interface {
	// RecentMessages returns at most limit messages, newest first.
	RecentMessages(ctx context.Context, limit int) ([]Message, error)
}

// Collaborators bundles the data sources consumed by the tools.
type Collaborators struct {
	Users    UserDirectory
	Files    FileCatalog
	Messages MessageLog
}

// ErrNotFound is returned when a looked-up record doesn't exist.
type ErrNotFound struct {
	Kind string
	Key  string
}

func (e ErrNotFound) Error() string {
	if e.Key == "" {
		return e.Kind + " not found"
	}

	return e.Kind + " not found: " + e.Key
}
