package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Psycoguana/SubredditMediaDownloader/internal/domain"
)

// Config holds the archive run parameters.
type Config struct {
	Subreddit     string
	After         time.Time
	Before        time.Time
	MaxConcurrent int
}

// ArchiveService runs one fetch-and-save pass: query the index, filter by
// the time window, plan download tasks, and fan the downloads out over a
// bounded worker pool. Per-task failures never abort sibling tasks.
type ArchiveService struct {
	source     Source
	planner    Planner
	store      MediaStore
	downloader Downloader
	progress   ProgressReporter
	logger     *slog.Logger
	config     Config
}

func NewArchiveService(
	source Source,
	planner Planner,
	store MediaStore,
	downloader Downloader,
	progress ProgressReporter,
	logger *slog.Logger,
	cfg Config,
) *ArchiveService {
	return &ArchiveService{
		source:     source,
		planner:    planner,
		store:      store,
		downloader: downloader,
		progress:   progress,
		logger:     logger.With("source", source.ID()),
		config:     cfg,
	}
}

func (s *ArchiveService) Run(ctx context.Context) (*domain.RunStats, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)

	logger.Info("starting archive run",
		"source_name", s.source.Name(),
		"subreddit", s.config.Subreddit,
		"after", s.config.After,
		"before", s.config.Before,
	)

	subs, err := s.source.SearchSubmissions(ctx, domain.Query{
		Subreddit: s.config.Subreddit,
		After:     s.config.After,
		Before:    s.config.Before,
	})
	if err != nil {
		if len(subs) == 0 {
			return nil, fmt.Errorf("search submissions: %w", err)
		}
		// Mid-run paging failure: what was discovered is still worth
		// downloading.
		logger.Warn("index paging failed, continuing with partial results",
			"discovered", len(subs),
			"error", err,
		)
	}

	logger.Info("fetched submissions from index", "count", len(subs))

	subs = s.filterByWindow(subs)
	logger.Debug("filtered by time window", "remaining", len(subs))

	tasks, unsupported := s.planner.Plan(ctx, subs)
	logger.Info("planned download tasks",
		"tasks", len(tasks),
		"unsupported", unsupported,
	)

	stats := &domain.RunStats{
		Subreddit:   s.config.Subreddit,
		Discovered:  len(subs),
		Unsupported: unsupported,
		Planned:     len(tasks),
	}

	s.downloadAll(ctx, logger, tasks, stats)

	stats.Duration = time.Since(startTime)

	logger.Info("archive run completed",
		"planned", stats.Planned,
		"downloaded", stats.Downloaded,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"unsupported", stats.Unsupported,
		"bytes", stats.Bytes,
		"duration", stats.Duration,
	)

	return stats, nil
}

// filterByWindow enforces the inclusive [after, before] bounds on the
// service side, regardless of what the index returned.
func (s *ArchiveService) filterByWindow(subs []domain.Submission) []domain.Submission {
	if s.config.After.IsZero() && s.config.Before.IsZero() {
		return subs
	}

	var filtered []domain.Submission
	for _, sub := range subs {
		if !s.config.After.IsZero() && sub.CreatedAt.Before(s.config.After) {
			continue
		}
		if !s.config.Before.IsZero() && sub.CreatedAt.After(s.config.Before) {
			continue
		}
		filtered = append(filtered, sub)
	}
	return filtered
}

// downloadAll fans tasks out over a bounded worker pool and joins on all
// of them. Planning has fully completed before the first download starts.
func (s *ArchiveService) downloadAll(ctx context.Context, logger *slog.Logger, tasks []domain.DownloadTask, stats *domain.RunStats) {
	maxConcurrent := s.config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	s.progress.Start(len(tasks))
	defer s.progress.Finish()

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, task := range tasks {
		select {
		case <-ctx.Done():
			logger.Warn("run cancelled, not starting remaining downloads")
			wg.Wait()
			return
		default:
		}

		if s.store.Exists(task.Kind, task.Name) {
			mu.Lock()
			stats.Skipped++
			mu.Unlock()
			s.progress.Advance()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(task domain.DownloadTask) {
			defer func() { <-sem }()
			defer wg.Done()
			defer s.progress.Advance()

			n, err := s.downloader.Download(ctx, task)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				stats.Downloaded++
				stats.Bytes += n
			case errors.Is(err, domain.ErrMediaDeleted):
				stats.Skipped++
			default:
				stats.Failed++
				logger.Warn("download failed",
					"submission_id", task.SubmissionID,
					"url", task.URL,
					"error", err,
				)
			}
		}(task)
	}

	wg.Wait()
}
