package models

import (
	"strings"
	"time"
)

type PostStatus string

const (
	PostStatusPending PostStatus = "pending"
	PostStatusPosted  PostStatus = "posted"
)

// PostedAtLayout is the timestamp format written to the posted_at column.
const PostedAtLayout = "2006-01-02 15:04:05"

// ImageRef points at the media attached to a post. A nil *ImageRef means text only.
type ImageRef struct {
	Location string
}

// NewImageRef returns nil when raw is empty or only whitespace.
func NewImageRef(raw string) *ImageRef {
	loc := strings.TrimSpace(raw)
	if loc == "" {
		return nil
	}
	return &ImageRef{Location: loc}
}

// IsLocal reports whether the image is a file on the local disk.
func (i *ImageRef) IsLocal() bool {
	lower := strings.ToLower(i.Location)
	for _, scheme := range []string{"r2://", "http://", "https://"} {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	return true
}

type PostRecord struct {
	Row      int
	Text     string
	Image    *ImageRef
	Status   PostStatus
	PostedAt *time.Time
}

func (p *PostRecord) IsPending() bool {
	return p.Status == PostStatusPending
}

// TextPreview returns at most n runes of the post text for log lines.
func (p *PostRecord) TextPreview(n int) string {
	runes := []rune(p.Text)
	if len(runes) <= n {
		return p.Text
	}
	return string(runes[:n]) + "..."
}

type CycleReport struct {
	CycleID    string    `json:"cycle_id"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
