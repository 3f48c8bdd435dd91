// Package reddit resolves submission links that do not name a media file
// directly: imgur .gifv pages (which actually serve MP4) and v.redd.it
// videos whose fallback URL only exists in the post's own JSON.
package reddit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Psycoguana/SubredditMediaDownloader/internal/domain"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) SubredditMediaDownloader/1.0"

// Config holds resolver configuration.
type Config struct {
	Timeout time.Duration
}

type Resolver struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewResolver creates a resolver for indirect media links.
func NewResolver(cfg Config, logger *slog.Logger) *Resolver {
	return &Resolver{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With("component", "link_resolver"),
	}
}

// ResolveGifv returns the real MP4 URL behind an imgur .gifv page. Imgur
// serves these as HTML wrapping an MP4, advertised in the page's meta tags.
func (r *Resolver) ResolveGifv(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch gifv page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse gifv page: %w", err)
	}

	var mp4URL string
	doc.Find("meta").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		content, ok := sel.Attr("content")
		if ok && strings.HasSuffix(content, ".mp4") {
			mp4URL = content
			return false
		}
		return true
	})

	if mp4URL == "" {
		return "", fmt.Errorf("no mp4 link found in %s", pageURL)
	}
	return mp4URL, nil
}

// ResolveVideo looks up a v.redd.it fallback URL through the submission's
// own JSON document when the index record carried no usable video info.
func (r *Resolver) ResolveVideo(ctx context.Context, permalink string) (string, error) {
	reqURL := "https://www.reddit.com" + strings.TrimSuffix(permalink, "/") + ".json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	// Reddit rate-limits the default Go user agent aggressively.
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch post json: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	video, err := decodeVideo(resp.Body)
	if err != nil {
		return "", err
	}

	if video.TranscodingStatus != "completed" || video.FallbackURL == "" {
		return "", domain.ErrMediaDeleted
	}
	return video.FallbackURL, nil
}
