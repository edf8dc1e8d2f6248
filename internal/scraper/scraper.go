package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"apollo/internal/reddit"
)

const (
	// DeletedAuthor replaces authors Reddit no longer reports.
	DeletedAuthor = "[deleted]"

	// maxTopComments caps the comments kept per post.
	maxTopComments = 10

	// halfYearWindow is the lookback used by the top-posts and top-comments
	// commands. Reddit has no 26-week bucket, so the year bucket is fetched
	// and submissions older than 26 full weeks are dropped by timestamp.
	halfYearWindow = 26 * 7 * 24 * time.Hour

	// topFetchLimit is how many submissions the year bucket is read for
	// before local truncation.
	topFetchLimit = 100

	// searchFetchLimit caps how many search results are pulled before the
	// keyword filter runs.
	searchFetchLimit = 100
)

var validSortings = map[string]bool{
	"relevance": true,
	"hot":       true,
	"top":       true,
	"new":       true,
	"comments":  true,
}

var validIntervals = map[string]bool{
	"hour":  true,
	"day":   true,
	"week":  true,
	"month": true,
	"year":  true,
	"all":   true,
}

// Scraper runs the fetch, normalize, filter pipeline against a subreddit.
type Scraper struct {
	client *reddit.Client
	now    func() time.Time
}

// New creates a Scraper backed by the given Reddit client.
func New(client *reddit.Client) *Scraper {
	return &Scraper{
		client: client,
		now:    time.Now,
	}
}

// ValidateCriteria rejects sort modes and intervals the API does not accept.
// It runs before any network call.
func ValidateCriteria(sorting, interval string) error {
	if !validSortings[sorting] {
		return fmt.Errorf("invalid sorting %q (accepted: relevance, hot, top, new, comments)", sorting)
	}
	if !validIntervals[interval] {
		return fmt.Errorf("invalid interval %q (accepted: hour, day, week, month, year, all)", interval)
	}
	return nil
}

// Normalize builds one Post record from a raw submission and its raw
// comments. It is pure: the same input always yields the same record. A
// submission without an id fails with ErrMalformedResponse.
func Normalize(sub reddit.SubmissionData, comments []reddit.CommentData) (Post, error) {
	if sub.ID == "" {
		return Post{}, fmt.Errorf("submission missing id: %w", reddit.ErrMalformedResponse)
	}

	author := sub.Author
	if author == "" {
		author = DeletedAuthor
	}

	if len(comments) > maxTopComments {
		comments = comments[:maxTopComments]
	}
	top := make([]Comment, 0, len(comments))
	for _, com := range comments {
		commentAuthor := com.Author
		if commentAuthor == "" {
			commentAuthor = DeletedAuthor
		}
		top = append(top, Comment{
			Author: commentAuthor,
			Body:   com.Body,
			Score:  com.Score,
		})
	}

	return Post{
		ID:          sub.ID,
		Author:      author,
		Score:       sub.Score,
		Title:       sub.Title,
		Body:        sub.Selftext,
		URL:         "https://reddit.com" + sub.Permalink,
		NumComments: sub.NumComments,
		TopComments: top,
	}, nil
}

// FilterKeyword returns the posts whose title or body contains the keyword,
// case-insensitively. Input order is preserved and never re-sorted. A miss on
// every post yields an empty, non-nil slice.
func FilterKeyword(posts []Post, keyword string) []Post {
	needle := strings.ToLower(keyword)
	matched := make([]Post, 0, len(posts))
	for _, post := range posts {
		if strings.Contains(strings.ToLower(post.Title), needle) ||
			strings.Contains(strings.ToLower(post.Body), needle) {
			matched = append(matched, post)
		}
	}
	return matched
}

// KeywordSearch fetches submissions matching the query from the subreddit's
// search endpoint, normalizes them with their top comments, then keeps only
// the records whose title or body actually contains the keyword.
func (s *Scraper) KeywordSearch(ctx context.Context, subreddit, query, sorting, interval string, limit int) ([]Post, error) {
	if err := ValidateCriteria(sorting, interval); err != nil {
		return nil, err
	}
	if _, err := s.client.AboutSubreddit(ctx, subreddit); err != nil {
		return nil, err
	}

	subs, err := s.client.Search(ctx, subreddit, query, sorting, interval, searchFetchLimit)
	if err != nil {
		return nil, err
	}

	posts, err := s.buildPosts(ctx, subreddit, subs)
	if err != nil {
		return nil, err
	}
	matched := FilterKeyword(posts, query)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// TopPosts fetches the subreddit's top posts of the last 26 weeks, capped at
// limit (0 means no cap). The year bucket is queried and older submissions
// are dropped by created_utc; upstream top ordering is never re-sorted.
func (s *Scraper) TopPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	if _, err := s.client.AboutSubreddit(ctx, subreddit); err != nil {
		return nil, err
	}

	subs, err := s.client.Top(ctx, subreddit, "year", topFetchLimit)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().UTC().Add(-halfYearWindow).Unix()
	recent := make([]reddit.SubmissionData, 0, len(subs))
	for _, sub := range subs {
		if int64(sub.CreatedUTC) > cutoff {
			recent = append(recent, sub)
		}
	}

	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}

	return s.buildPosts(ctx, subreddit, recent)
}

// TopComments fetches the top posts of the last 26 weeks and projects each
// post's comment list, one inner list per post.
func (s *Scraper) TopComments(ctx context.Context, subreddit string, limit int) ([][]Comment, error) {
	posts, err := s.TopPosts(ctx, subreddit, limit)
	if err != nil {
		return nil, err
	}

	comments := make([][]Comment, 0, len(posts))
	for _, post := range posts {
		comments = append(comments, post.TopComments)
	}
	return comments, nil
}

// buildPosts normalizes raw submissions into Post records, fetching the top
// comments for each. Submissions are processed sequentially in upstream
// order; request ordering and rate-limit compliance matter more than
// throughput here.
func (s *Scraper) buildPosts(ctx context.Context, subreddit string, subs []reddit.SubmissionData) ([]Post, error) {
	posts := make([]Post, 0, len(subs))
	for _, sub := range subs {
		if sub.ID == "" {
			return nil, fmt.Errorf("submission missing id: %w", reddit.ErrMalformedResponse)
		}

		comments, err := s.client.Comments(ctx, subreddit, sub.ID, maxTopComments)
		if err != nil {
			return nil, fmt.Errorf("fetch comments for %s: %w", sub.ID, err)
		}

		post, err := Normalize(sub, comments)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}
