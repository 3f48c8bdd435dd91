package reddit

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Psycoguana/SubredditMediaDownloader/internal/domain"
)

// A post's JSON document is an array of listings; the first one holds the
// post itself.
type listing struct {
	Data struct {
		Children []struct {
			Data postData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	SecureMedia *struct {
		RedditVideo *struct {
			FallbackURL       string `json:"fallback_url"`
			TranscodingStatus string `json:"transcoding_status"`
		} `json:"reddit_video"`
	} `json:"secure_media"`
}

func decodeVideo(r io.Reader) (*domain.RedditVideo, error) {
	var listings []listing
	if err := json.NewDecoder(r).Decode(&listings); err != nil {
		return nil, fmt.Errorf("decode post json: %w", err)
	}

	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return nil, fmt.Errorf("post json has no children")
	}

	post := listings[0].Data.Children[0].Data
	if post.SecureMedia == nil || post.SecureMedia.RedditVideo == nil {
		// Removed before transcoding finished.
		return nil, domain.ErrMediaDeleted
	}

	video := post.SecureMedia.RedditVideo
	return &domain.RedditVideo{
		FallbackURL:       video.FallbackURL,
		TranscodingStatus: video.TranscodingStatus,
	}, nil
}
