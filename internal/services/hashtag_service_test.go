package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain tags in order",
			text: "studying #math and #english today",
			want: []string{"math", "english"},
		},
		{
			name: "lowercased and deduplicated",
			text: "#GoLang is great, #golang forever",
			want: []string{"golang"},
		},
		{
			name: "japanese tags",
			text: "今日は #勉強 と #べんきょう、#ベンキョウ!",
			want: []string{"勉強", "べんきょう", "ベンキョウ"},
		},
		{
			name: "long tags are cut at ten characters",
			text: "#abcdefghijklmnop",
			want: []string{"abcdefghij"},
		},
		{
			name: "no tags",
			text: "nothing to see here",
			want: nil,
		},
		{
			name: "bare hash ignored",
			text: "just a # sign",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func newHashtagFixture(t *testing.T) (*HashtagService, *fakeHashtagRepo) {
	t.Helper()
	repo := newFakeHashtagRepo()
	svc := NewHashtagService(repo)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestRecordPostCountsEachTagOnce(t *testing.T) {
	svc, repo := newHashtagFixture(t)
	ctx := context.Background()

	svc.RecordPost(ctx, "#go #go #redis day")
	svc.RecordPost(ctx, "more #go")

	assert.Equal(t, 2, repo.counts["2026-03-10"]["go"])
	assert.Equal(t, 1, repo.counts["2026-03-10"]["redis"])
}

func TestTrendingRanksTodayTags(t *testing.T) {
	svc, _ := newHashtagFixture(t)
	ctx := context.Background()

	svc.RecordPost(ctx, "#quiet")
	svc.RecordPost(ctx, "#busy")
	svc.RecordPost(ctx, "another #busy post")

	trending, err := svc.Trending(ctx)
	require.NoError(t, err)
	require.Len(t, trending, 2)
	assert.Equal(t, 1, trending[0].Rank)
	assert.Equal(t, "busy", trending[0].Tag)
	assert.Equal(t, 2, trending[0].Count)
	assert.Equal(t, 2, trending[1].Rank)
	assert.Equal(t, "quiet", trending[1].Tag)
}

func TestTrendingFallsBackToLastWeek(t *testing.T) {
	svc, repo := newHashtagFixture(t)
	ctx := context.Background()

	// Counts from two days ago, nothing today.
	require.NoError(t, repo.IncrementTag(ctx, "throwback", "2026-03-08"))
	require.NoError(t, repo.IncrementTag(ctx, "throwback", "2026-03-08"))

	trending, err := svc.Trending(ctx)
	require.NoError(t, err)
	require.Len(t, trending, 1)
	assert.Equal(t, "throwback", trending[0].Tag)
	assert.Equal(t, 2, trending[0].Count)
}

func TestTrendingIgnoresCountsOlderThanAWeek(t *testing.T) {
	svc, repo := newHashtagFixture(t)
	ctx := context.Background()

	require.NoError(t, repo.IncrementTag(ctx, "ancient", "2026-02-01"))

	trending, err := svc.Trending(ctx)
	require.NoError(t, err)
	assert.Empty(t, trending)
}
