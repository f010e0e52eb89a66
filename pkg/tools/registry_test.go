package tools_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/sparky/pkg/store"
	"github.com/papercomputeco/sparky/pkg/store/inmemory"
	"github.com/papercomputeco/sparky/pkg/tools"
)

// brokenStore fails or panics on every read.
type brokenStore struct {
	panics bool
}

func (b brokenStore) fail() error {
	if b.panics {
		panic("connection pool exhausted")
	}
	return errors.New("database is locked")
}

func (b brokenStore) FindByUsername(context.Context, string) (*store.User, error) {
	return nil, b.fail()
}
func (b brokenStore) ListUsers(context.Context) ([]store.User, error) { return nil, b.fail() }
func (b brokenStore) ListByOnline(context.Context, bool) ([]store.User, error) {
	return nil, b.fail()
}
func (b brokenStore) RecentFiles(context.Context, int) ([]store.SharedFile, error) {
	return nil, b.fail()
}
func (b brokenStore) RecentMessages(context.Context, int) ([]store.Message, error) {
	return nil, b.fail()
}

var _ = Describe("Registry", func() {
	var (
		ctx      context.Context
		driver   *inmemory.Driver
		registry *tools.Registry
		base     time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		registry = tools.NewRegistry(driver.Collaborators(), zap.NewNop())
		base = time.Date(2025, 8, 18, 10, 0, 0, 0, time.UTC)
	})

	Describe("Specs", func() {
		It("lists the three tools in a stable order", func() {
			specs := registry.Specs()
			Expect(specs).To(HaveLen(3))
			Expect(specs[0].Name).To(Equal(tools.GetUsers))
			Expect(specs[1].Name).To(Equal(tools.GetFiles))
			Expect(specs[2].Name).To(Equal(tools.GetMessages))
		})

		It("declares typed parameters", func() {
			specs := registry.Specs()
			Expect(specs[1].Parameters).To(HaveKey("limit"))
			Expect(string(specs[1].Parameters["limit"].Type)).To(Equal("integer"))
			Expect(string(specs[0].Parameters["status"].Type)).To(Equal("string"))
		})

		It("returns a copy that callers cannot use to mutate the registry", func() {
			specs := registry.Specs()
			specs[0].Name = "drop_tables"
			Expect(registry.Specs()[0].Name).To(Equal(tools.GetUsers))
		})
	})

	Describe("get_users", func() {
		BeforeEach(func() {
			driver.AddUsers(
				store.User{ID: 1, Username: "alice", Role: "ADMIN", Online: true},
				store.User{ID: 2, Username: "bob", Role: "USER"},
				store.User{ID: 3, Username: "mallory", Role: "USER", Banned: true},
			)
		})

		It("lists all users without filters", func() {
			out := registry.Execute(ctx, tools.GetUsers, nil)
			Expect(out).To(HavePrefix("Found 3 user(s):\n"))
			Expect(out).To(ContainSubstring("- alice (ADMIN) [online]\n"))
			Expect(out).To(ContainSubstring("- bob (USER) [offline]\n"))
			Expect(out).To(ContainSubstring("- mallory (USER) [offline] [BANNED]\n"))
		})

		It("filters by status case-insensitively", func() {
			out := registry.Execute(ctx, tools.GetUsers, map[string]any{"status": "ONLINE"})
			Expect(out).To(Equal("Found 1 user(s):\n- alice (ADMIN) [online]\n"))

			out = registry.Execute(ctx, tools.GetUsers, map[string]any{"status": "Offline"})
			Expect(out).To(HavePrefix("Found 2 user(s):"))
		})

		It("gives username precedence over status", func() {
			out := registry.Execute(ctx, tools.GetUsers, map[string]any{"status": "online", "username": "bob"})
			Expect(out).To(Equal("Found 1 user(s):\n- bob (USER) [offline]\n"))
		})

		It("requires an exact username match", func() {
			out := registry.Execute(ctx, tools.GetUsers, map[string]any{"username": "Bob"})
			Expect(out).To(Equal("No users found matching the criteria."))
		})

		It("treats unknown status values as no filter", func() {
			out := registry.Execute(ctx, tools.GetUsers, map[string]any{"status": "away"})
			Expect(out).To(HavePrefix("Found 3 user(s):"))
		})
	})

	Describe("get_files", func() {
		addFiles := func(contentTypes ...string) {
			// contentTypes are given newest first
			for i, ct := range contentTypes {
				driver.AddFiles(store.SharedFile{
					ID:          int64(i + 1),
					Filename:    fmt.Sprintf("file-%d", i+1),
					ContentType: ct,
					Size:        2048,
					UploadedBy:  "alice",
					UploadedAt:  base.Add(-time.Duration(i) * time.Hour),
				})
			}
		}

		It("applies the type filter after the limit", func() {
			addFiles("image/png", "video/mp4", "application/pdf", "image/jpeg", "text/plain")

			out := registry.Execute(ctx, tools.GetFiles, map[string]any{"limit": 2, "type": "pdf"})
			Expect(out).To(Equal("No files found."))
		})

		It("finds the match once the limit reaches it", func() {
			addFiles("image/png", "video/mp4", "application/pdf", "image/jpeg", "text/plain")

			out := registry.Execute(ctx, tools.GetFiles, map[string]any{"limit": float64(3), "type": "PDF"})
			Expect(out).To(Equal("Found 1 file(s):\n- file-3 (2 KB) by alice\n"))
		})

		It("defaults to five files", func() {
			addFiles("a", "b", "c", "d", "e", "f", "g")

			out := registry.Execute(ctx, tools.GetFiles, nil)
			Expect(out).To(HavePrefix("Found 5 file(s):"))
			Expect(out).NotTo(ContainSubstring("file-6"))
		})

		It("formats file sizes", func() {
			for i, size := range []int64{0, 512, 5 * 1024 * 1024} {
				driver.AddFiles(store.SharedFile{
					Filename: fmt.Sprintf("s%d", i), Size: size, UploadedBy: "bob",
					UploadedAt: base.Add(-time.Duration(i) * time.Minute),
				})
			}

			out := registry.Execute(ctx, tools.GetFiles, nil)
			Expect(out).To(ContainSubstring("- s0 (unknown size) by bob"))
			Expect(out).To(ContainSubstring("- s1 (512 B) by bob"))
			Expect(out).To(ContainSubstring("- s2 (5 MB) by bob"))
		})

		It("rejects a non-numeric limit as a tool error", func() {
			out := registry.Execute(ctx, tools.GetFiles, map[string]any{"limit": "ten"})
			Expect(out).To(HavePrefix(tools.ErrorPrefix))
			Expect(out).To(ContainSubstring("invalid arguments"))
		})
	})

	Describe("get_messages", func() {
		It("filters by sender after the limit and truncates long content", func() {
			long := strings.Repeat("x", 150)
			driver.AddMessages(
				store.Message{ID: 1, Sender: "alice", Content: long, Timestamp: base.Add(3 * time.Minute)},
				store.Message{ID: 2, Sender: "bob", Content: "hi", Timestamp: base.Add(2 * time.Minute)},
				store.Message{ID: 3, Sender: "Alice", Content: "older", Timestamp: base.Add(time.Minute)},
			)

			out := registry.Execute(ctx, tools.GetMessages, map[string]any{"limit": 2, "sender": "ALI"})
			Expect(out).To(Equal("Recent 1 message(s):\n- [alice]: " + strings.Repeat("x", 100) + "...\n"))
		})

		It("reports an empty log", func() {
			Expect(registry.Execute(ctx, tools.GetMessages, nil)).To(Equal("No messages found."))
		})

		It("caps the limit", func() {
			for i := 0; i < tools.MaxLimit+10; i++ {
				driver.AddMessages(store.Message{ID: int64(i), Sender: "s", Content: "m", Timestamp: base.Add(time.Duration(i) * time.Second)})
			}
			out := registry.Execute(ctx, tools.GetMessages, map[string]any{"limit": 500})
			Expect(out).To(HavePrefix(fmt.Sprintf("Recent %d message(s):", tools.MaxLimit)))
		})
	})

	Describe("failures", func() {
		It("renders unknown tools distinctly", func() {
			out := registry.Execute(ctx, "delete_everything", nil)
			Expect(out).To(Equal(tools.UnknownToolPrefix + "delete_everything"))

			_, err := registry.Run(ctx, "delete_everything", nil)
			Expect(err).To(MatchError(tools.ErrUnknownTool))
		})

		It("converts collaborator errors into a prefixed result", func() {
			broken := brokenStore{}
			r := tools.NewRegistry(store.Collaborators{Users: broken, Files: broken, Messages: broken}, zap.NewNop())

			out := r.Execute(ctx, tools.GetUsers, nil)
			Expect(out).To(Equal(tools.ErrorPrefix + "lookup users: database is locked"))

			_, err := r.Run(ctx, tools.GetFiles, nil)
			var toolErr *tools.ToolError
			Expect(errors.As(err, &toolErr)).To(BeTrue())
			Expect(toolErr.Tool).To(Equal(tools.GetFiles))
		})

		It("recovers panicking handlers", func() {
			broken := brokenStore{panics: true}
			r := tools.NewRegistry(store.Collaborators{Users: broken, Files: broken, Messages: broken}, zap.NewNop())

			var out string
			Expect(func() { out = r.Execute(ctx, tools.GetMessages, nil) }).NotTo(Panic())
			Expect(out).To(HavePrefix(tools.ErrorPrefix))
			Expect(out).To(ContainSubstring("connection pool exhausted"))
		})

		It("caps oversized results", func() {
			for i := 0; i < tools.MaxLimit; i++ {
				driver.AddUsers(store.User{ID: int64(i), Username: strings.Repeat("u", 120) + fmt.Sprint(i), Role: "USER"})
			}
			out := registry.Execute(ctx, tools.GetUsers, nil)
			Expect(len(out)).To(BeNumerically("<=", tools.MaxResultChars+len("\n... [truncated]")))
			Expect(out).To(HaveSuffix("... [truncated]"))
		})
	})
})
