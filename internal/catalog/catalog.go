// Package catalog defines the video catalog read model consumed by the
// search executor.
package catalog

import "context"

// Video is one searchable catalog entry.
type Video struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Source lists searchable videos. A nil or empty scope means the whole
// catalog; otherwise only the listed ids are returned.
type Source interface {
	ListVideos(ctx context.Context, scope []int64) ([]Video, error)
}
