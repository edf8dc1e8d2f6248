package storage

import "time"

// ArchivedPost is a normalized post persisted in the local archive.
type ArchivedPost struct {
	ID          string    `db:"id"`
	Subreddit   string    `db:"subreddit"`
	Author      string    `db:"author"`
	Score       int       `db:"score"`
	Title       string    `db:"title"`
	Body        string    `db:"body"`
	URL         string    `db:"url"`
	NumComments int       `db:"num_comments"`
	TopComments string    `db:"top_comments"` // JSON array of comment records
	FetchedAt   time.Time `db:"fetched_at"`
}
