package domain

import (
	"errors"
	"time"
)

// ErrMediaDeleted marks media that the origin host reports as gone.
// Reddit answers 403 as well as 404 for removed hosted videos, so both
// map to this error.
var ErrMediaDeleted = errors.New("media deleted at origin")

// Query describes one search against the submission index.
type Query struct {
	Subreddit string
	// After and Before bound the submission creation time (inclusive).
	// A zero value leaves that side of the window open.
	After  time.Time
	Before time.Time
}

// Submission is one post record returned by the index. Only the fields the
// planner consumes are kept.
type Submission struct {
	ID        string
	URL       string
	Permalink string
	CreatedAt time.Time

	// Video is set when the index record carries a reddit-hosted video,
	// either directly or through the first crosspost parent.
	Video *RedditVideo

	// GalleryItems holds the images of a reddit gallery post, in stable
	// (key-sorted) order.
	GalleryItems []GalleryItem
}

// RedditVideo is the transcoded video attached to a submission.
type RedditVideo struct {
	FallbackURL       string
	TranscodingStatus string
}

// GalleryItem is a single image inside a gallery submission.
type GalleryItem struct {
	URL string
}

// MediaKind selects the subfolder a file is stored under.
type MediaKind string

const (
	KindImage MediaKind = "images"
	KindGif   MediaKind = "gifs"
	KindVideo MediaKind = "videos"
)

// DownloadTask is a single planned fetch: one URL bound to its final
// filename. Name is a pure function of the submission id and the resolved
// extension, so re-runs derive identical paths.
type DownloadTask struct {
	SubmissionID string
	URL          string
	Name         string
	Kind         MediaKind
}

// RunStats holds the counters of one archive run.
type RunStats struct {
	Subreddit   string
	Discovered  int // submissions inside the query window
	Unsupported int // submissions discarded by the allow-list
	Planned     int // download tasks created
	Downloaded  int
	Skipped     int // already present locally, or deleted at origin
	Failed      int
	Bytes       int64
	Duration    time.Duration
}
