// Package demo provides a small ChillSpace data set for local runs: the
// in-memory store is preloaded with it and `sparky seed` writes it to SQL.
package demo

import (
	"time"

	"github.com/papercomputeco/sparky/pkg/store"
)

// Data is a consistent set of users, files and messages.
type Data struct {
	Users    []store.User
	Files    []store.SharedFile
	Messages []store.Message
}

// New returns the demo data set with timestamps relative to now.
func New(now time.Time) Data {
	ago := func(d time.Duration) time.Time { return now.Add(-d) }

	return Data{
		Users: []store.User{
			{ID: 1, Username: "maya", Email: "maya@chillspace.dev", Role: "ADMIN", Online: true, LastSeen: ago(time.Minute), CreatedAt: ago(90 * 24 * time.Hour)},
			{ID: 2, Username: "leo", Email: "leo@chillspace.dev", Role: "USER", Online: true, LastSeen: ago(3 * time.Minute), CreatedAt: ago(60 * 24 * time.Hour)},
			{ID: 3, Username: "priya", Email: "priya@chillspace.dev", Role: "USER", LastSeen: ago(5 * time.Hour), CreatedAt: ago(45 * 24 * time.Hour)},
			{ID: 4, Username: "tom", Email: "tom@chillspace.dev", Role: "USER", Banned: true, LastSeen: ago(10 * 24 * time.Hour), CreatedAt: ago(30 * 24 * time.Hour)},
		},
		Files: []store.SharedFile{
			{ID: 1, Filename: "a1f3-house-rules.pdf", OriginalFilename: "house-rules.pdf", ContentType: "application/pdf", Size: 184_320, UploadedBy: "maya", UploadedAt: ago(72 * time.Hour), Description: "Community guidelines"},
			{ID: 2, Filename: "b7c2-sunset.jpg", OriginalFilename: "sunset.jpg", ContentType: "image/jpeg", Size: 2_621_440, UploadedBy: "leo", UploadedAt: ago(26 * time.Hour)},
			{ID: 3, Filename: "c9d4-playlist.txt", OriginalFilename: "playlist.txt", ContentType: "text/plain", Size: 812, UploadedBy: "priya", UploadedAt: ago(5 * time.Hour)},
			{ID: 4, Filename: "d2e8-meetup.mp4", OriginalFilename: "meetup.mp4", ContentType: "video/mp4", Size: 48_234_496, UploadedBy: "maya", UploadedAt: ago(2 * time.Hour), Description: "Friday meetup recording"},
		},
		Messages: []store.Message{
			{ID: 1, Type: "CHAT", Content: "Welcome to ChillSpace everyone! Please read the house rules pinned in files.", Sender: "maya", SenderRole: "ADMIN", Timestamp: ago(70 * time.Hour)},
			{ID: 2, Type: "CHAT", Content: "Check out this sunset from yesterday 🌅", Sender: "leo", SenderRole: "USER", Timestamp: ago(26 * time.Hour)},
			{ID: 3, Type: "CHAT", Content: "Made a lo-fi playlist for study sessions, it's in the files tab.", Sender: "priya", SenderRole: "USER", Timestamp: ago(5 * time.Hour)},
			{ID: 4, Type: "CHAT", Content: "Uploaded the recording of Friday's meetup. Thanks to everyone who joined, it was great to finally see so many of you in person and hear what you're all working on!", Sender: "maya", SenderRole: "ADMIN", Timestamp: ago(2 * time.Hour)},
			{ID: 5, Type: "CHAT", Content: "Anyone up for a game night this weekend?", Sender: "leo", SenderRole: "USER", Timestamp: ago(15 * time.Minute)},
		},
	}
}
