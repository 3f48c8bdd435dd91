package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/Psycoguana/SubredditMediaDownloader/internal/domain"
)

type Source interface {
	ID() string
	Name() string
	SearchSubmissions(ctx context.Context, q domain.Query) ([]domain.Submission, error)
}

type Planner interface {
	Plan(ctx context.Context, subs []domain.Submission) ([]domain.DownloadTask, int)
}

type MediaStore interface {
	Exists(kind domain.MediaKind, name string) bool
}

type Downloader interface {
	Download(ctx context.Context, task domain.DownloadTask) (int64, error)
}

type ProgressReporter interface {
	Start(total int)
	Advance()
	Finish()
}
