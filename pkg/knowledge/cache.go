// Package knowledge maintains the reference documents injected into the
// assistant's system instruction. Text is extracted from a document directory
// and cached for a TTL; refreshes are single-flighted and swap the whole
// mapping at once, so readers only ever see a complete snapshot.
package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL      = 5 * time.Minute
	DefaultMaxChars = 10000

	truncationMarker = "... [truncated]"

	header    = "=== KNOWLEDGE BASE (USER PROVIDED DOCUMENTS) ==="
	footer    = "=== END KNOWLEDGE BASE ==="
	separator = "----------------------------------------"
)

// DefaultDirs are searched when no directories are configured: the working
// directory first, then the container path.
var DefaultDirs = []string{"knowledge", "/app/knowledge"}

// Config configures a Cache.
type Config struct {
	// Dirs are tried in order; the first existing directory is scanned.
	Dirs []string

	// TTL is the maximum age of the cached snapshot.
	TTL time.Duration

	// MaxChars caps the extracted text per document, in characters.
	MaxChars int

	// Extractors maps lower-case file extensions to text extractors.
	// Nil selects DefaultExtractors.
	Extractors map[string]Extractor

	// Clock returns the current time. Nil selects time.Now.
	Clock func() time.Time
}

// Entry is the cached text of one document.
type Entry struct {
	Filename    string    `json:"filename"`
	Text        string    `json:"text"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

type snapshot struct {
	entries     []Entry
	refreshedAt time.Time
}

// Cache is a TTL-bound, process-wide knowledge document cache. It is safe
// for concurrent use.
type Cache struct {
	config Config
	logger *zap.Logger

	current atomic.Pointer[snapshot]
	stale   atomic.Bool
	scans   atomic.Int64
	group   singleflight.Group
}

// New creates a Cache. Nothing is scanned until the first read.
func New(config Config, logger *zap.Logger) *Cache {
	if len(config.Dirs) == 0 {
		config.Dirs = DefaultDirs
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.MaxChars <= 0 {
		config.MaxChars = DefaultMaxChars
	}
	if config.Extractors == nil {
		config.Extractors = DefaultExtractors()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &Cache{
		config: config,
		logger: logger,
	}
}

// Content returns every cached document wrapped in filename markers, or ""
// when no documents are available.
func (c *Cache) Content(ctx context.Context) string {
	snap := c.load(ctx)
	if len(snap.entries) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(header + "\n")
	for _, e := range snap.entries {
		sb.WriteString("\nDOCUMENT: " + e.Filename + "\n")
		sb.WriteString(separator + "\n")
		sb.WriteString(e.Text + "\n")
		sb.WriteString(separator + "\n")
	}
	sb.WriteString(footer + "\n\n")
	return sb.String()
}

// Entries returns a copy of the cached documents, refreshing first if the
// snapshot has expired.
func (c *Cache) Entries(ctx context.Context) []Entry {
	snap := c.load(ctx)
	entries := make([]Entry, len(snap.entries))
	copy(entries, snap.entries)
	return entries
}

// Invalidate marks the snapshot stale so the next read refreshes it.
func (c *Cache) Invalidate() {
	c.stale.Store(true)
}

// Scans returns the number of directory scans performed so far.
func (c *Cache) Scans() int64 {
	return c.scans.Load()
}

// Dir returns the directory that would be scanned, or "" if none exists.
func (c *Cache) Dir() string {
	for _, dir := range c.config.Dirs {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}

// load returns a fresh snapshot, refreshing it when expired. Concurrent
// callers share a single refresh. A caller whose ctx ends while waiting is
// served the previous snapshot if there is one.
func (c *Cache) load(ctx context.Context) *snapshot {
	prev := c.current.Load()
	if c.fresh(prev) {
		return prev
	}

	ch := c.group.DoChan("refresh", func() (any, error) {
		// Another flight may have finished between our check and this one.
		if cur := c.current.Load(); c.fresh(cur) {
			return cur, nil
		}
		snap := c.refresh()
		c.current.Store(snap)
		return snap, nil
	})

	select {
	case res := <-ch:
		return res.Val.(*snapshot)
	case <-ctx.Done():
		if prev != nil {
			return prev
		}
		return &snapshot{}
	}
}

func (c *Cache) fresh(snap *snapshot) bool {
	return snap != nil && !c.stale.Load() && c.config.Clock().Sub(snap.refreshedAt) <= c.config.TTL
}

func (c *Cache) refresh() *snapshot {
	c.stale.Store(false)
	c.scans.Add(1)
	now := c.config.Clock()

	dir := c.Dir()
	if dir == "" {
		c.logger.Warn("knowledge directory not found, knowledge base disabled",
			zap.Strings("dirs", c.config.Dirs),
		)
		return &snapshot{refreshedAt: now}
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		c.logger.Error("failed to scan knowledge directory", zap.String("dir", dir), zap.Error(err))
		if prev := c.current.Load(); prev != nil {
			return &snapshot{entries: prev.entries, refreshedAt: now}
		}
		return &snapshot{refreshedAt: now}
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name := f.Name()
		extract, ok := c.config.Extractors[strings.ToLower(filepath.Ext(name))]
		if !ok {
			continue
		}

		text, err := extract(filepath.Join(dir, name))
		if err != nil {
			c.logger.Error("failed to extract knowledge document",
				zap.String("file", name),
				zap.Error(err),
			)
			continue
		}

		entries = append(entries, Entry{
			Filename:    name,
			Text:        c.cap(strings.TrimSpace(text)),
			RefreshedAt: now,
		})
	}

	c.logger.Info("knowledge base refreshed",
		zap.String("dir", dir),
		zap.Int("documents", len(entries)),
	)

	return &snapshot{entries: entries, refreshedAt: now}
}

func (c *Cache) cap(text string) string {
	if utf8.RuneCountInString(text) <= c.config.MaxChars {
		return text
	}
	return string([]rune(text)[:c.config.MaxChars]) + truncationMarker
}
