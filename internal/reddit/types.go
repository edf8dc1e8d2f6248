package reddit

// SubmissionData is the subset of a Reddit submission object we consume.
type SubmissionData struct {
	ID          string  `json:"id"`
	Subreddit   string  `json:"subreddit"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

// CommentData is the subset of a Reddit comment object we consume.
type CommentData struct {
	Author string `json:"author"`
	Body   string `json:"body"`
	Score  int    `json:"score"`
}

// SubredditInfo holds metadata returned by the subreddit about endpoint.
type SubredditInfo struct {
	Name          string `json:"display_name"`
	Title         string `json:"title"`
	SubredditType string `json:"subreddit_type"`
	Subscribers   int    `json:"subscribers"`
}

// submissionListing is the kind/data envelope for submission listings.
type submissionListing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string         `json:"kind"`
			Data SubmissionData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// commentListing is the kind/data envelope for comment listings.
type commentListing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string      `json:"kind"`
			Data CommentData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// aboutResponse is the envelope for the subreddit about endpoint.
type aboutResponse struct {
	Kind string        `json:"kind"`
	Data SubredditInfo `json:"data"`
}

// tokenResponse is the OAuth token endpoint payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
