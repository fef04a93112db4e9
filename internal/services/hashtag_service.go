package services

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/repositories"
)

// hashtagPattern accepts word characters plus hiragana, katakana and common
// kanji, up to ten characters per tag.
var hashtagPattern = regexp.MustCompile(`#([\w\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{4E00}-\x{9FAF}]{1,10})`)

const trendingLimit = 10

// HashtagService extracts tags from post text and keeps the per-day usage
// counters that back the trending list.
type HashtagService struct {
	hashtags repositories.HashtagRepository
	now      func() time.Time
}

// NewHashtagService creates a new HashtagService
func NewHashtagService(hashtags repositories.HashtagRepository) *HashtagService {
	return &HashtagService{hashtags: hashtags, now: time.Now}
}

// Extract returns the lowercased, deduplicated hashtags found in text, in
// order of first appearance.
func Extract(text string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var tags []string
	for _, m := range matches {
		tag := strings.ToLower(m[1])
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// RecordPost bumps today's counter for every hashtag in the post text.
// Counter failures are logged and swallowed so a post never fails over its
// hashtags.
func (s *HashtagService) RecordPost(ctx context.Context, text string) {
	date := s.now().Format("2006-01-02")
	for _, tag := range Extract(text) {
		if err := s.hashtags.IncrementTag(ctx, tag, date); err != nil {
			log.Printf("failed to count hashtag %q: %v", tag, err)
		}
	}
}

// Trending returns today's top tags. When today has none yet the last seven
// days are aggregated instead so the list never starts empty mid-week.
func (s *HashtagService) Trending(ctx context.Context) ([]models.TrendingHashtag, error) {
	today := s.now().Format("2006-01-02")
	rows, err := s.hashtags.TopForDate(ctx, today, trendingLimit)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		since := s.now().AddDate(0, 0, -6).Format("2006-01-02")
		rows, err = s.hashtags.AggregateSince(ctx, since, trendingLimit)
		if err != nil {
			return nil, err
		}
	}

	trending := make([]models.TrendingHashtag, 0, len(rows))
	for i, row := range rows {
		trending = append(trending, models.TrendingHashtag{
			Rank:  i + 1,
			Tag:   row.Tag,
			Count: row.Count,
		})
	}
	return trending, nil
}
