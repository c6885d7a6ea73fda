// Package memory provides a catalog source for local development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/vidstream-labs/searchcore/internal/catalog"
)

// Source is a slice-backed catalog.Source.
type Source struct {
	mu     sync.RWMutex
	videos []catalog.Video
}

// NewSource constructs a Source seeded with the given videos.
func NewSource(videos []catalog.Video) *Source {
	cp := make([]catalog.Video, len(videos))
	copy(cp, videos)
	return &Source{videos: cp}
}

// Add appends a video to the catalog.
func (s *Source) Add(v catalog.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos = append(s.videos, v)
}

// ListVideos returns the catalog, restricted to scope when supplied.
func (s *Source) ListVideos(_ context.Context, scope []int64) ([]catalog.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(scope) == 0 {
		out := make([]catalog.Video, len(s.videos))
		copy(out, s.videos)
		return out, nil
	}
	wanted := make(map[int64]struct{}, len(scope))
	for _, id := range scope {
		wanted[id] = struct{}{}
	}
	var out []catalog.Video
	for _, v := range s.videos {
		if _, ok := wanted[v.ID]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}
