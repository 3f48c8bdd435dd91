package media

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Psycoguana/SubredditMediaDownloader/internal/domain"
)

// stubResolver answers link resolutions from fixed maps.
type stubResolver struct {
	gifv   map[string]string
	videos map[string]string
	err    error
}

func (r *stubResolver) ResolveGifv(_ context.Context, pageURL string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	if u, ok := r.gifv[pageURL]; ok {
		return u, nil
	}
	return "", errors.New("no mp4 link found")
}

func (r *stubResolver) ResolveVideo(_ context.Context, permalink string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	if u, ok := r.videos[permalink]; ok {
		return u, nil
	}
	return "", domain.ErrMediaDeleted
}

func testPlanner(resolver LinkResolver) *Planner {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewPlanner(resolver, logger)
}

func TestPlan_ExtensionAllowList(t *testing.T) {
	p := testPlanner(&stubResolver{})

	subs := []domain.Submission{
		{ID: "a1", URL: "https://i.imgur.com/a1.jpg"},
		{ID: "b2", URL: "https://files.example.com/b2.mp4"},
		{ID: "c3", URL: "https://example.com/article.html"},
	}

	tasks, unsupported := p.Plan(context.Background(), subs)

	require.Len(t, tasks, 2)
	assert.Equal(t, 1, unsupported)

	assert.Equal(t, "a1.jpg", tasks[0].Name)
	assert.Equal(t, domain.KindImage, tasks[0].Kind)
	assert.Equal(t, "b2.mp4", tasks[1].Name)
	assert.Equal(t, domain.KindVideo, tasks[1].Kind)
}

func TestPlan_MissingURLDiscarded(t *testing.T) {
	p := testPlanner(&stubResolver{})

	tasks, unsupported := p.Plan(context.Background(), []domain.Submission{{ID: "nourl"}})

	assert.Empty(t, tasks)
	assert.Equal(t, 1, unsupported)
}

func TestPlan_GifvResolvesToMP4(t *testing.T) {
	p := testPlanner(&stubResolver{
		gifv: map[string]string{
			"https://i.imgur.com/xyz.gifv": "https://i.imgur.com/xyz.mp4",
		},
	})

	tasks, unsupported := p.Plan(context.Background(), []domain.Submission{
		{ID: "xyz", URL: "https://i.imgur.com/xyz.gifv"},
	})

	require.Len(t, tasks, 1)
	assert.Equal(t, 0, unsupported)
	assert.Equal(t, "https://i.imgur.com/xyz.mp4", tasks[0].URL)
	assert.Equal(t, "xyz.mp4", tasks[0].Name)
	assert.Equal(t, domain.KindVideo, tasks[0].Kind)
}

func TestPlan_GifvResolutionFailureDiscards(t *testing.T) {
	p := testPlanner(&stubResolver{err: errors.New("page gone")})

	tasks, unsupported := p.Plan(context.Background(), []domain.Submission{
		{ID: "xyz", URL: "https://i.imgur.com/xyz.gifv"},
	})

	assert.Empty(t, tasks)
	assert.Equal(t, 1, unsupported)
}

func TestPlan_GalleryExpandsWithStableSuffixes(t *testing.T) {
	p := testPlanner(&stubResolver{})

	subs := []domain.Submission{{
		ID:  "gal1",
		URL: "https://www.reddit.com/gallery/gal1",
		GalleryItems: []domain.GalleryItem{
			{URL: "https://preview.redd.it/first.jpg?width=640"},
			{URL: "https://preview.redd.it/second.png?width=640"},
		},
	}}

	tasks, unsupported := p.Plan(context.Background(), subs)

	require.Len(t, tasks, 2)
	assert.Equal(t, 0, unsupported)
	assert.Equal(t, "gal1_1.jpg", tasks[0].Name)
	assert.Equal(t, "gal1_2.png", tasks[1].Name)
}

func TestPlan_EmptyGalleryDiscarded(t *testing.T) {
	p := testPlanner(&stubResolver{})

	// Removed posts keep the gallery URL but carry no metadata.
	tasks, unsupported := p.Plan(context.Background(), []domain.Submission{
		{ID: "gone", URL: "https://www.reddit.com/gallery/gone"},
	})

	assert.Empty(t, tasks)
	assert.Equal(t, 1, unsupported)
}

func TestPlan_RedditVideoFromIndexRecord(t *testing.T) {
	p := testPlanner(&stubResolver{})

	subs := []domain.Submission{{
		ID:  "vid1",
		URL: "https://v.redd.it/vid1",
		Video: &domain.RedditVideo{
			FallbackURL:       "https://v.redd.it/vid1/DASH_720.mp4?source=fallback",
			TranscodingStatus: "completed",
		},
	}}

	tasks, unsupported := p.Plan(context.Background(), subs)

	require.Len(t, tasks, 1)
	assert.Equal(t, 0, unsupported)
	assert.Equal(t, "vid1.mp4", tasks[0].Name)
	assert.Equal(t, domain.KindVideo, tasks[0].Kind)
	assert.Equal(t, subs[0].Video.FallbackURL, tasks[0].URL)
}

func TestPlan_UntranscodedVideoDiscarded(t *testing.T) {
	p := testPlanner(&stubResolver{})

	tasks, unsupported := p.Plan(context.Background(), []domain.Submission{{
		ID:    "vid2",
		URL:   "https://v.redd.it/vid2",
		Video: &domain.RedditVideo{TranscodingStatus: "error"},
	}})

	assert.Empty(t, tasks)
	assert.Equal(t, 1, unsupported)
}

func TestPlan_RedditVideoResolvedThroughPermalink(t *testing.T) {
	p := testPlanner(&stubResolver{
		videos: map[string]string{
			"/r/testsub/comments/vid3/title/": "https://v.redd.it/vid3/DASH_1080.mp4?source=fallback",
		},
	})

	tasks, unsupported := p.Plan(context.Background(), []domain.Submission{{
		ID:        "vid3",
		URL:       "https://v.redd.it/vid3",
		Permalink: "/r/testsub/comments/vid3/title/",
	}})

	require.Len(t, tasks, 1)
	assert.Equal(t, 0, unsupported)
	assert.Equal(t, "vid3.mp4", tasks[0].Name)
}

func TestFilenameIsDeterministic(t *testing.T) {
	p := testPlanner(&stubResolver{})
	sub := []domain.Submission{{ID: "same", URL: "https://i.imgur.com/same.png"}}

	first, _ := p.Plan(context.Background(), sub)
	second, _ := p.Plan(context.Background(), sub)

	require.Len(t, first, 1)
	assert.Equal(t, first, second)
}

func TestExt(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://i.imgur.com/a.jpg", "jpg"},
		{"https://i.imgur.com/a.JPEG", "jpeg"},
		{"https://i.imgur.com/a.png?width=100&crop=smart", "png"},
		{"https://i.imgur.com/a.gifv", "gifv"},
		{"https://v.redd.it/a/DASH_720.mp4?source=fallback", "mp4"},
		{"https://example.com/page.html", ""},
		{"https://example.com/noext", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Ext(tt.url), "url %q", tt.url)
	}
}

func TestKindFor(t *testing.T) {
	assert.Equal(t, domain.KindVideo, KindFor("mp4"))
	assert.Equal(t, domain.KindGif, KindFor("gif"))
	assert.Equal(t, domain.KindGif, KindFor("gifv"))
	assert.Equal(t, domain.KindImage, KindFor("jpg"))
	assert.Equal(t, domain.KindImage, KindFor("png"))
}
