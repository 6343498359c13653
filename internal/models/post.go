package models

import (
	"strings"
	"time"
)

// DisplayTimeLayout renders authored_at in local time, e.g. "14:05 Mar-09-2026".
const DisplayTimeLayout = "15:04 Jan-02-2006"

// Post is the atomic unit of the feed. The JSON field names are the cache file
// format and stay compatible with caches written by earlier releases.
type Post struct {
	ID            string   `json:"id"`
	AuthorDisplay string   `json:"user"`
	Author        Identity `json:"author,omitempty"`
	AuthoredAt    int64    `json:"timestamp"`
	DisplayTime   string   `json:"datetime"`
	Content       string   `json:"content"`
	RootID        *string  `json:"root_id"`
	ReplyID       *string  `json:"reply_id"`
	Mentions      []string `json:"mentions"`
	Participants  []string `json:"participants"`
}

// IsRoot reports whether the post starts a thread.
func (p Post) IsRoot() bool {
	return p.RootID == nil && p.ReplyID == nil
}

// IsReply reports whether the post names an immediate parent.
func (p Post) IsReply() bool {
	return p.ReplyID != nil
}

// IsThreadReply reports whether the post names both a root and a parent.
func (p Post) IsThreadReply() bool {
	return p.RootID != nil && p.ReplyID != nil
}

// ParentID returns the post this one answers. A post carrying only a root
// reference is a direct reply to that root.
func (p Post) ParentID() string {
	if p.ReplyID != nil {
		return *p.ReplyID
	}
	if p.RootID != nil {
		return *p.RootID
	}
	return ""
}

// ThreadRootID returns the id of the conversation root, the post itself when
// it is a root.
func (p Post) ThreadRootID() string {
	if p.RootID != nil {
		return *p.RootID
	}
	if p.ReplyID != nil {
		return *p.ReplyID
	}
	return p.ID
}

// Time returns AuthoredAt as a time.Time.
func (p Post) Time() time.Time {
	return time.Unix(p.AuthoredAt, 0)
}

// Normalize fills derived and defaulted fields after decoding.
func (p *Post) Normalize() {
	p.ID = strings.TrimSpace(p.ID)
	if p.DisplayTime == "" && p.AuthoredAt > 0 {
		p.DisplayTime = FormatDisplayTime(p.AuthoredAt)
	}
	if p.AuthorDisplay == "" && p.Author != "" {
		p.AuthorDisplay = p.Author.String()
	}
	if p.Mentions == nil {
		p.Mentions = []string{}
	}
	if p.Participants == nil {
		p.Participants = []string{}
	}
}

// FormatDisplayTime renders unix seconds in local time.
func FormatDisplayTime(unix int64) string {
	return time.Unix(unix, 0).Local().Format(DisplayTimeLayout)
}

// NewestFirst orders posts by AuthoredAt descending, ties by id for stability.
func NewestFirst(a, b Post) bool {
	if a.AuthoredAt != b.AuthoredAt {
		return a.AuthoredAt > b.AuthoredAt
	}
	return a.ID < b.ID
}

// StringPtr returns a pointer to a copy of s, or nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
