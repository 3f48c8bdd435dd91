package pushshift

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Psycoguana/SubredditMediaDownloader/internal/domain"
)

const (
	SourceID   = "pushshift"
	SourceName = "PushShift"
)

// Config holds PushShift client configuration.
type Config struct {
	BaseURL           string
	PageSize          int
	MaxPages          int // 0 means no cap
	Timeout           time.Duration
	RateLimitInterval time.Duration
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
}

// Client searches the PushShift submission index. Pagination walks a
// descending created_utc cursor, so the index's own page limit never has
// to be known.
type Client struct {
	httpClient     *http.Client
	limiter        *rate.Limiter
	baseURL        string
	pageSize       int
	maxPages       int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a new PushShift client.
func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:        rate.NewLimiter(rate.Every(cfg.RateLimitInterval), 1),
		baseURL:        cfg.BaseURL,
		pageSize:       cfg.PageSize,
		maxPages:       cfg.MaxPages,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID),
	}
}

// ID returns the source identifier.
func (c *Client) ID() string {
	return SourceID
}

// Name returns human-readable name.
func (c *Client) Name() string {
	return SourceName
}

// SearchSubmissions pages through the index for the query window. On a
// mid-run page failure it returns the submissions gathered so far together
// with the error, so the caller can decide whether a partial result is
// still worth downloading.
func (c *Client) SearchSubmissions(ctx context.Context, q domain.Query) ([]domain.Submission, error) {
	var all []submission
	cursor := q.Before

	for page := 0; c.maxPages == 0 || page < c.maxPages; page++ {
		resp, err := c.fetchPage(ctx, q, cursor)
		if err != nil {
			return c.transform(all), fmt.Errorf("fetch page %d: %w", page, err)
		}

		if len(resp.Data) == 0 {
			break
		}

		all = append(all, resp.Data...)

		c.logger.Debug("fetched page",
			"page", page,
			"submissions", len(resp.Data),
			"total", len(all),
		)

		last := resp.Data[len(resp.Data)-1]
		cursor = time.Unix(int64(last.CreatedUTC), 0)
	}

	return c.transform(all), nil
}

func (c *Client) fetchPage(ctx context.Context, q domain.Query, before time.Time) (*apiResponse, error) {
	reqURL := c.buildURL(q, before)

	var resp *apiResponse
	var err error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err = c.doRequest(ctx, reqURL)
		if err == nil {
			return resp, nil
		}

		if attempt == c.maxAttempts {
			break
		}

		backoff := c.calculateBackoff(attempt)
		c.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", c.maxAttempts, err)
}

func (c *Client) buildURL(q domain.Query, before time.Time) string {
	params := url.Values{}
	params.Set("subreddit", q.Subreddit)
	params.Set("size", strconv.Itoa(c.pageSize))
	params.Set("sort", "desc")
	params.Set("sort_type", "created_utc")
	params.Set("fields", "id,url,permalink,created_utc,media,media_metadata,crosspost_parent_list")
	if !q.After.IsZero() {
		params.Set("after", strconv.FormatInt(q.After.Unix(), 10))
	}
	if !before.IsZero() {
		params.Set("before", strconv.FormatInt(before.Unix(), 10))
	}
	return c.baseURL + "?" + params.Encode()
}

func (c *Client) doRequest(ctx context.Context, reqURL string) (*apiResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "SubredditMediaDownloader/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &apiResp, nil
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}

func (c *Client) transform(subs []submission) []domain.Submission {
	out := make([]domain.Submission, 0, len(subs))

	for _, s := range subs {
		sub := domain.Submission{
			ID:        s.ID,
			URL:       s.URL,
			Permalink: s.Permalink,
			CreatedAt: time.Unix(int64(s.CreatedUTC), 0),
			Video:     extractVideo(s),
		}

		// Map iteration order is random; sort the gallery keys so task
		// numbering is stable across runs.
		if len(s.MediaMetadata) > 0 {
			keys := make([]string, 0, len(s.MediaMetadata))
			for k := range s.MediaMetadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				img := s.MediaMetadata[k]
				if img.Status != "completed" || img.Source.URL == "" {
					continue
				}
				// The API escapes ampersands inside the source URL.
				u := strings.ReplaceAll(img.Source.URL, "amp;", "")
				sub.GalleryItems = append(sub.GalleryItems, domain.GalleryItem{URL: u})
			}
		}

		out = append(out, sub)
	}

	return out
}

func extractVideo(s submission) *domain.RedditVideo {
	if s.Media != nil && s.Media.RedditVideo != nil {
		return &domain.RedditVideo{
			FallbackURL:       s.Media.RedditVideo.FallbackURL,
			TranscodingStatus: s.Media.RedditVideo.TranscodingStatus,
		}
	}
	for _, parent := range s.CrosspostParentList {
		if parent.Media != nil && parent.Media.RedditVideo != nil {
			return &domain.RedditVideo{
				FallbackURL:       parent.Media.RedditVideo.FallbackURL,
				TranscodingStatus: parent.Media.RedditVideo.TranscodingStatus,
			}
		}
	}
	return nil
}
