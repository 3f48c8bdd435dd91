package pushshift

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Psycoguana/SubredditMediaDownloader/internal/domain"
)

func testClient(baseURL string, maxPages int) *Client {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(Config{
		BaseURL:           baseURL,
		PageSize:          2,
		MaxPages:          maxPages,
		Timeout:           5 * time.Second,
		RateLimitInterval: time.Millisecond,
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
	}, logger)
}

func TestSearchSubmissions_PagesUntilEmpty(t *testing.T) {
	var pages atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "testsub", r.URL.Query().Get("subreddit"))
		assert.Equal(t, "2", r.URL.Query().Get("size"))
		assert.Equal(t, "desc", r.URL.Query().Get("sort"))

		switch pages.Add(1) {
		case 1:
			assert.Empty(t, r.URL.Query().Get("before"))
			fmt.Fprint(w, `{"data":[
				{"id":"aaa","url":"https://i.imgur.com/aaa.jpg","created_utc":2000},
				{"id":"bbb","url":"https://i.imgur.com/bbb.png","created_utc":1500}
			]}`)
		case 2:
			// Cursor advanced to the last created_utc of page one.
			assert.Equal(t, "1500", r.URL.Query().Get("before"))
			fmt.Fprint(w, `{"data":[
				{"id":"ccc","url":"https://i.imgur.com/ccc.gif","created_utc":1000}
			]}`)
		default:
			fmt.Fprint(w, `{"data":[]}`)
		}
	}))
	defer server.Close()

	c := testClient(server.URL, 0)

	subs, err := c.SearchSubmissions(context.Background(), domain.Query{Subreddit: "testsub"})

	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, int32(3), pages.Load())
	assert.Equal(t, "aaa", subs[0].ID)
	assert.Equal(t, time.Unix(2000, 0), subs[0].CreatedAt)
	assert.Equal(t, "ccc", subs[2].ID)
}

func TestSearchSubmissions_PassesWindowBounds(t *testing.T) {
	after := time.Unix(100, 0)
	before := time.Unix(900, 0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("after"))
		assert.Equal(t, "900", r.URL.Query().Get("before"))
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer server.Close()

	c := testClient(server.URL, 0)

	subs, err := c.SearchSubmissions(context.Background(), domain.Query{
		Subreddit: "testsub",
		After:     after,
		Before:    before,
	})

	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSearchSubmissions_RespectsMaxPages(t *testing.T) {
	var pages atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := pages.Add(1)
		fmt.Fprintf(w, `{"data":[{"id":"id%d","url":"https://i.imgur.com/x.jpg","created_utc":%d}]}`, n, 10000-n)
	}))
	defer server.Close()

	c := testClient(server.URL, 2)

	subs, err := c.SearchSubmissions(context.Background(), domain.Query{Subreddit: "testsub"})

	require.NoError(t, err)
	assert.Len(t, subs, 2)
	assert.Equal(t, int32(2), pages.Load())
}

func TestSearchSubmissions_RetriesFailedPage(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer server.Close()

	c := testClient(server.URL, 0)

	_, err := c.SearchSubmissions(context.Background(), domain.Query{Subreddit: "testsub"})

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearchSubmissions_ReturnsPartialOnPageFailure(t *testing.T) {
	var pages atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// First page succeeds, everything after fails hard.
		if pages.Add(1) == 1 {
			fmt.Fprint(w, `{"data":[{"id":"aaa","url":"https://i.imgur.com/aaa.jpg","created_utc":2000}]}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := testClient(server.URL, 0)

	subs, err := c.SearchSubmissions(context.Background(), domain.Query{Subreddit: "testsub"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch page 1")
	require.Len(t, subs, 1)
	assert.Equal(t, "aaa", subs[0].ID)
}

func TestTransform_GalleryAndVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("before") != "" {
			fmt.Fprint(w, `{"data":[]}`)
			return
		}
		fmt.Fprint(w, `{"data":[
			{
				"id":"gal",
				"url":"https://www.reddit.com/gallery/gal",
				"created_utc":300,
				"media_metadata":{
					"zzz":{"status":"completed","s":{"u":"https://preview.redd.it/zzz.jpg?width=640&amp;crop=smart"}},
					"aaa":{"status":"completed","s":{"u":"https://preview.redd.it/aaa.png?width=640"}},
					"bad":{"status":"failed","s":{"u":"https://preview.redd.it/bad.png"}}
				}
			},
			{
				"id":"vid",
				"url":"https://v.redd.it/vid",
				"created_utc":200,
				"crosspost_parent_list":[
					{"media":{"reddit_video":{"fallback_url":"https://v.redd.it/vid/DASH_720.mp4","transcoding_status":"completed"}}}
				]
			}
		]}`)
	}))
	defer server.Close()

	c := testClient(server.URL, 0)

	subs, err := c.SearchSubmissions(context.Background(), domain.Query{Subreddit: "testsub"})
	require.NoError(t, err)
	require.Len(t, subs, 2)

	gal := subs[0]
	require.Len(t, gal.GalleryItems, 2)
	// Keys are sorted, failed entries dropped, amp; unescaped.
	assert.Equal(t, "https://preview.redd.it/aaa.png?width=640", gal.GalleryItems[0].URL)
	assert.Equal(t, "https://preview.redd.it/zzz.jpg?width=640&crop=smart", gal.GalleryItems[1].URL)

	vid := subs[1]
	require.NotNil(t, vid.Video)
	assert.Equal(t, "completed", vid.Video.TranscodingStatus)
	assert.Equal(t, "https://v.redd.it/vid/DASH_720.mp4", vid.Video.FallbackURL)
}
