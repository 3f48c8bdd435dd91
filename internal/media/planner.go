package media

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Psycoguana/SubredditMediaDownloader/internal/domain"
)

const (
	galleryPrefix     = "https://www.reddit.com/gallery/"
	redditVideoPrefix = "https://v.redd.it/"
)

// LinkResolver resolves links that need a network round-trip before they
// point at an actual media file.
type LinkResolver interface {
	ResolveGifv(ctx context.Context, pageURL string) (string, error)
	ResolveVideo(ctx context.Context, permalink string) (string, error)
}

// Planner turns submissions into download tasks.
type Planner struct {
	resolver LinkResolver
	logger   *slog.Logger
}

func NewPlanner(resolver LinkResolver, logger *slog.Logger) *Planner {
	return &Planner{
		resolver: resolver,
		logger:   logger.With("component", "planner"),
	}
}

// Plan derives zero or more download tasks per submission. Submissions
// without a URL or with an unsupported extension are discarded; the second
// return value counts them. Resolution failures discard the submission as
// well, they never fail the plan.
func (p *Planner) Plan(ctx context.Context, subs []domain.Submission) ([]domain.DownloadTask, int) {
	var tasks []domain.DownloadTask
	unsupported := 0

	for _, sub := range subs {
		planned, err := p.planSubmission(ctx, sub)
		if err != nil {
			p.logger.Debug("submission discarded",
				"submission_id", sub.ID,
				"url", sub.URL,
				"reason", err,
			)
			unsupported++
			continue
		}
		tasks = append(tasks, planned...)
	}

	return tasks, unsupported
}

func (p *Planner) planSubmission(ctx context.Context, sub domain.Submission) ([]domain.DownloadTask, error) {
	switch {
	case sub.URL == "":
		return nil, fmt.Errorf("no outbound url")

	case strings.HasPrefix(sub.URL, galleryPrefix):
		return p.planGallery(sub)

	case strings.HasPrefix(sub.URL, redditVideoPrefix):
		return p.planVideo(ctx, sub)

	case Ext(sub.URL) == "gifv":
		// Imgur .gifv pages are HTML around an MP4.
		mp4URL, err := p.resolver.ResolveGifv(ctx, sub.URL)
		if err != nil {
			return nil, fmt.Errorf("resolve gifv: %w", err)
		}
		return []domain.DownloadTask{{
			SubmissionID: sub.ID,
			URL:          mp4URL,
			Name:         Filename(sub.ID, "mp4"),
			Kind:         domain.KindVideo,
		}}, nil

	case Ext(sub.URL) != "":
		ext := Ext(sub.URL)
		return []domain.DownloadTask{{
			SubmissionID: sub.ID,
			URL:          sub.URL,
			Name:         Filename(sub.ID, ext),
			Kind:         KindFor(ext),
		}}, nil

	default:
		return nil, fmt.Errorf("unsupported link")
	}
}

// planGallery expands a gallery post into one task per completed image.
// Names carry a 1-based position suffix so files from the same submission
// never collide.
func (p *Planner) planGallery(sub domain.Submission) ([]domain.DownloadTask, error) {
	if len(sub.GalleryItems) == 0 {
		// Removed posts keep the gallery URL but lose the metadata.
		return nil, fmt.Errorf("gallery has no completed images")
	}

	tasks := make([]domain.DownloadTask, 0, len(sub.GalleryItems))
	for i, item := range sub.GalleryItems {
		ext := Ext(item.URL)
		if ext == "" {
			continue
		}
		tasks = append(tasks, domain.DownloadTask{
			SubmissionID: sub.ID,
			URL:          item.URL,
			Name:         Filename(fmt.Sprintf("%s_%d", sub.ID, i+1), ext),
			Kind:         KindFor(ext),
		})
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("gallery has no supported images")
	}
	return tasks, nil
}

// planVideo finds the MP4 fallback stream of a reddit-hosted video, first
// from the index record itself, then through the post's own JSON.
func (p *Planner) planVideo(ctx context.Context, sub domain.Submission) ([]domain.DownloadTask, error) {
	fallbackURL := ""

	if sub.Video != nil {
		if sub.Video.TranscodingStatus != "completed" {
			return nil, fmt.Errorf("video not transcoded")
		}
		fallbackURL = sub.Video.FallbackURL
	} else if sub.Permalink != "" {
		resolved, err := p.resolver.ResolveVideo(ctx, sub.Permalink)
		if err != nil {
			return nil, fmt.Errorf("resolve video: %w", err)
		}
		fallbackURL = resolved
	}

	if fallbackURL == "" {
		return nil, fmt.Errorf("no fallback url")
	}

	// Fallback URLs carry a DASH_<res> path and a query string; the file is
	// always MP4.
	return []domain.DownloadTask{{
		SubmissionID: sub.ID,
		URL:          fallbackURL,
		Name:         Filename(sub.ID, "mp4"),
		Kind:         domain.KindVideo,
	}}, nil
}
