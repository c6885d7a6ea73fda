// Package relevance implements the substring-match search executor over the
// video catalog.
package relevance

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/vidstream-labs/searchcore/internal/catalog"
	"github.com/vidstream-labs/searchcore/internal/search"
)

// Scoring weights. A full-phrase title match dominates, individual word
// matches contribute fractionally, descriptions weigh less than titles.
const (
	titlePhraseWeight = 0.7
	titleWordWeight   = 0.3
	descPhraseWeight  = 0.3
	descWordWeight    = 0.1
	snippetPadding    = 30
)

// Executor scores catalog entries against a query and returns matches ordered
// by descending relevance.
type Executor struct {
	source catalog.Source
}

// New constructs an Executor over the given catalog source.
func New(source catalog.Source) *Executor {
	return &Executor{source: source}
}

// Search implements search.Executor.
func (e *Executor) Search(ctx context.Context, query string, scope []int64) ([]search.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	videos, err := e.source.ListVideos(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	queryLower := strings.ToLower(query)
	queryWords := strings.Fields(queryLower)

	var results []search.Result
	for _, video := range videos {
		score, matched := scoreVideo(video, queryLower, queryWords)
		if score <= 0 {
			continue
		}
		if matched == "" {
			matched = video.Title
		}
		results = append(results, search.Result{
			VideoID:        video.ID,
			Title:          video.Title,
			RelevanceScore: round2(math.Min(score, 1.0)),
			MatchedText:    matched,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	return results, nil
}

func scoreVideo(video catalog.Video, queryLower string, queryWords []string) (float64, string) {
	var (
		score   float64
		matched string
	)

	titleLower := strings.ToLower(video.Title)
	if strings.Contains(titleLower, queryLower) {
		score += titlePhraseWeight
		matched = video.Title
	} else {
		for _, word := range queryWords {
			if strings.Contains(titleLower, word) {
				score += titleWordWeight / float64(len(queryWords))
				if matched == "" {
					matched = video.Title
				}
			}
		}
	}

	descLower := strings.ToLower(video.Description)
	if idx := strings.Index(descLower, queryLower); idx >= 0 {
		score += descPhraseWeight
		if matched == "" {
			matched = snippet(video.Description, idx, len(queryLower))
		}
	} else {
		for _, word := range queryWords {
			if strings.Contains(descLower, word) {
				score += descWordWeight / float64(len(queryWords))
			}
		}
	}

	return score, matched
}

// snippet extracts the matched phrase plus surrounding context from the
// original-case description.
func snippet(description string, idx, matchLen int) string {
	start := idx - snippetPadding
	if start < 0 {
		start = 0
	}
	end := idx + matchLen + snippetPadding
	if end > len(description) {
		end = len(description)
	}
	return description[start:end]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
