package relay

import (
	"context"
	"fmt"
	"strings"
)

// Platform identifies a destination network.
type Platform string

// Supported platforms.
const (
	Telegram Platform = "telegram"
	Reddit   Platform = "reddit"
)

// Platforms returns every supported platform in dispatch order.
func Platforms() []Platform {
	return []Platform{Telegram, Reddit}
}

// Label is the display name used in result lines.
func (p Platform) Label() string {
	switch p {
	case Telegram:
		return "Telegram"
	case Reddit:
		return "Reddit"
	default:
		return string(p)
	}
}

// ParsePlatforms normalizes raw form values into a de-duplicated, canonically
// ordered platform list.
func ParsePlatforms(values []string) ([]Platform, error) {
	requested := make(map[Platform]struct{}, len(values))
	for _, raw := range values {
		raw = strings.TrimSpace(strings.ToLower(raw))
		if raw == "" {
			continue
		}
		p := Platform(raw)
		if !p.supported() {
			return nil, &ValidationError{Field: "platforms", Reason: fmt.Sprintf("Unsupported platform %q", raw)}
		}
		requested[p] = struct{}{}
	}
	if len(requested) == 0 {
		return nil, &ValidationError{Field: "platforms", Reason: "At least one platform must be selected"}
	}
	out := make([]Platform, 0, len(requested))
	for _, p := range Platforms() {
		if _, ok := requested[p]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (p Platform) supported() bool {
	for _, known := range Platforms() {
		if p == known {
			return true
		}
	}
	return false
}

// Media is an uploaded file buffered in memory for the lifetime of one submission.
type Media struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Present reports whether the upload carries any bytes.
func (m *Media) Present() bool {
	return m != nil && len(m.Data) > 0
}

// Submission is one form post: a caption, the platforms to reach and optional media.
type Submission struct {
	ID        string
	Caption   string
	Platforms []Platform
	Media     *Media
}

// Validate checks the caption and platform selection.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.Caption) == "" {
		return &ValidationError{Field: "caption", Reason: "Caption is required"}
	}
	if len(s.Platforms) == 0 {
		return &ValidationError{Field: "platforms", Reason: "At least one platform must be selected"}
	}
	return nil
}

// Requests reports whether the submission targets p.
func (s Submission) Requests(p Platform) bool {
	for _, candidate := range s.Platforms {
		if candidate == p {
			return true
		}
	}
	return false
}

// Publisher delivers a submission to a single platform. A nil error means the
// platform accepted the content; detail is the short success note, if any.
type Publisher interface {
	Platform() Platform
	Publish(ctx context.Context, sub Submission) (detail string, err error)
}
