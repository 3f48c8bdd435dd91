// Package media classifies submission links against the supported
// extension allow-list and plans the download tasks for a run.
package media

import (
	"net/url"
	"path"
	"strings"

	"github.com/Psycoguana/SubredditMediaDownloader/internal/domain"
)

// Supported media suffixes. Everything else is discarded.
var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"gifv": true,
	"mp4":  true,
}

// Ext returns the lowercase extension of rawURL's path without the dot,
// or "" when the URL has no extension from the allow-list. Query strings
// and fragments are ignored.
func Ext(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if !allowedExtensions[ext] {
		return ""
	}
	return ext
}

// KindFor routes an extension to its storage subfolder.
func KindFor(ext string) domain.MediaKind {
	switch ext {
	case "mp4":
		return domain.KindVideo
	case "gif", "gifv":
		return domain.KindGif
	default:
		return domain.KindImage
	}
}

// Filename derives the deterministic target name for a submission's file.
func Filename(submissionID, ext string) string {
	return submissionID + "." + ext
}
