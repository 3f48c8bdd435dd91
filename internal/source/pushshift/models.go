package pushshift

// apiResponse represents a PushShift submission search response.
type apiResponse struct {
	Data []submission `json:"data"`
}

type submission struct {
	ID                  string                  `json:"id"`
	URL                 string                  `json:"url"`
	Permalink           string                  `json:"permalink"`
	CreatedUTC          float64                 `json:"created_utc"`
	Media               *media                  `json:"media"`
	MediaMetadata       map[string]galleryImage `json:"media_metadata"`
	CrosspostParentList []crosspostParent       `json:"crosspost_parent_list"`
}

type media struct {
	RedditVideo *redditVideo `json:"reddit_video"`
}

type redditVideo struct {
	FallbackURL       string `json:"fallback_url"`
	TranscodingStatus string `json:"transcoding_status"`
}

type crosspostParent struct {
	Media *media `json:"media"`
}

type galleryImage struct {
	Status string `json:"status"`
	Source struct {
		URL string `json:"u"`
	} `json:"s"`
}
