// Package inmemory provides a map-backed implementation of the store
// collaborators, used for demos and tests.
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/sparky/pkg/store"
)

// Driver holds users, files and messages in memory.
type Driver struct {
	mu       sync.RWMutex
	users    []store.User
	files    []store.SharedFile
	messages []store.Message
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{}
}

// Collaborators returns the driver wired as all three tool data sources.
func (d *Driver) Collaborators() store.Collaborators {
	return store.Collaborators{Users: d, Files: d, Messages: d}
}

// AddUsers appends users to the directory.
func (d *Driver) AddUsers(users ...store.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users = append(d.users, users...)
}

// AddFiles appends file metadata to the catalog.
func (d *Driver) AddFiles(files ...store.SharedFile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files = append(d.files, files...)
}

// AddMessages appends messages to the log.
func (d *Driver) AddMessages(messages ...store.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, messages...)
}

func (d *Driver) FindByUsername(ctx context.Context, username string) (*store.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, u := range d.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, store.ErrNotFound{Kind: "user", Key: username}
}

func (d *Driver) ListUsers(ctx context.Context) ([]store.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return slices.Clone(d.users), nil
}

func (d *Driver) ListByOnline(ctx context.Context, online bool) ([]store.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := make([]store.User, 0, len(d.users))
	for _, u := range d.users {
		if u.Online == online {
			users = append(users, u)
		}
	}
	return users, nil
}

func (d *Driver) RecentFiles(ctx context.Context, limit int) ([]store.SharedFile, error) {
	d.mu.RLock()
	files := slices.Clone(d.files)
	d.mu.RUnlock()

	slices.SortStableFunc(files, func(a, b store.SharedFile) int {
		return b.UploadedAt.Compare(a.UploadedAt)
	})
	return head(files, limit), nil
}

func (d *Driver) RecentMessages(ctx context.Context, limit int) ([]store.Message, error) {
	d.mu.RLock()
	messages := slices.Clone(d.messages)
	d.mu.RUnlock()

	slices.SortStableFunc(messages, func(a, b store.Message) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return head(messages, limit), nil
}

func head[T any](items []T, limit int) []T {
	if limit < 0 {
		limit = 0
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
