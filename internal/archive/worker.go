package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"apollo/internal/scraper"
	"apollo/internal/search"
	"apollo/internal/storage"
)

// Worker runs the scrape pipeline and persists the results into the local
// archive and its search index.
type Worker struct {
	scraper *scraper.Scraper
	db      *storage.DB
	index   *search.Index
}

// NewWorker creates a new archive worker.
func NewWorker(sc *scraper.Scraper, db *storage.DB, index *search.Index) *Worker {
	return &Worker{
		scraper: sc,
		db:      db,
		index:   index,
	}
}

// Stats holds archive run statistics.
type Stats struct {
	Fetched  int
	New      int
	Updated  int
	Errors   int
	Duration time.Duration
}

// Run fetches the subreddit's top posts of the last 26 weeks and upserts each
// into the archive and the search index. Posts are processed sequentially in
// upstream order.
func (w *Worker) Run(ctx context.Context, subreddit string) (*Stats, error) {
	startTime := time.Now()
	stats := &Stats{}

	log.Printf("Archiving r/%s...", subreddit)

	posts, err := w.scraper.TopPosts(ctx, subreddit, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch top posts: %w", err)
	}
	stats.Fetched = len(posts)

	for _, post := range posts {
		if err := w.archivePost(subreddit, post, stats); err != nil {
			log.Printf("Error archiving post %s (%s): %v", post.ID, post.Title, err)
			stats.Errors++
		}
	}

	stats.Duration = time.Since(startTime)
	log.Printf("Archive complete: %d fetched, %d new, %d updated, %d errors in %v",
		stats.Fetched, stats.New, stats.Updated, stats.Errors, stats.Duration)

	return stats, nil
}

// archivePost stores one post in the database and the search index.
func (w *Worker) archivePost(subreddit string, post scraper.Post, stats *Stats) error {
	known, err := w.db.Has(post.ID)
	if err != nil {
		return fmt.Errorf("check archive: %w", err)
	}

	commentsJSON, err := json.Marshal(post.TopComments)
	if err != nil {
		return fmt.Errorf("marshal comments: %w", err)
	}

	record := &storage.ArchivedPost{
		ID:          post.ID,
		Subreddit:   subreddit,
		Author:      post.Author,
		Score:       post.Score,
		Title:       post.Title,
		Body:        post.Body,
		URL:         post.URL,
		NumComments: post.NumComments,
		TopComments: string(commentsJSON),
		FetchedAt:   time.Now(),
	}

	if err := w.db.Upsert(record); err != nil {
		return fmt.Errorf("upsert post: %w", err)
	}

	indexed := &search.IndexedPost{
		ID:        post.ID,
		Subreddit: subreddit,
		Title:     post.Title,
		Body:      post.Body,
		Author:    post.Author,
		URL:       post.URL,
		Score:     post.Score,
	}
	if err := w.index.IndexPost(indexed); err != nil {
		return fmt.Errorf("index post: %w", err)
	}

	if known {
		stats.Updated++
	} else {
		stats.New++
	}
	return nil
}
