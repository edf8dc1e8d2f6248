package scraper

// Comment is a normalized Reddit comment record.
type Comment struct {
	Author string `json:"author"`
	Body   string `json:"body"`
	Score  int    `json:"score"`
}

// Post is a normalized Reddit submission record. TopComments holds at most
// the first ten comments in Reddit's confidence ranking at fetch time.
type Post struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	Score       int       `json:"score"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	URL         string    `json:"url"`
	NumComments int       `json:"num_comments"`
	TopComments []Comment `json:"top_comments"`
}
