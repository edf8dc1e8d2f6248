package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps SQLite archive operations
type DB struct {
	db *sql.DB
}

// Open opens or creates the archive database
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode keeps reads cheap while a watch run is writing
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	storage := &DB{db: db}

	if err := storage.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return storage, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// initSchema creates tables if they don't exist
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		subreddit TEXT NOT NULL,
		author TEXT NOT NULL,
		score INTEGER NOT NULL,
		title TEXT NOT NULL,
		body TEXT,
		url TEXT NOT NULL,
		num_comments INTEGER NOT NULL,
		top_comments TEXT,
		fetched_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_subreddit ON posts(subreddit);
	CREATE INDEX IF NOT EXISTS idx_score ON posts(score);
	CREATE INDEX IF NOT EXISTS idx_fetched ON posts(fetched_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Upsert inserts or updates an archived post
func (d *DB) Upsert(post *ArchivedPost) error {
	query := `
	INSERT INTO posts (
		id, subreddit, author, score, title, body, url,
		num_comments, top_comments, fetched_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		subreddit = excluded.subreddit,
		author = excluded.author,
		score = excluded.score,
		title = excluded.title,
		body = excluded.body,
		url = excluded.url,
		num_comments = excluded.num_comments,
		top_comments = excluded.top_comments,
		fetched_at = excluded.fetched_at
	`

	_, err := d.db.Exec(query,
		post.ID, post.Subreddit, post.Author, post.Score, post.Title, post.Body,
		post.URL, post.NumComments, post.TopComments, post.FetchedAt,
	)
	return err
}

// Get retrieves an archived post by ID
func (d *DB) Get(id string) (*ArchivedPost, error) {
	post := &ArchivedPost{}
	query := `
	SELECT id, subreddit, author, score, title, body, url,
	       num_comments, top_comments, fetched_at
	FROM posts
	WHERE id = ?
	`

	err := d.db.QueryRow(query, id).Scan(
		&post.ID, &post.Subreddit, &post.Author, &post.Score, &post.Title, &post.Body,
		&post.URL, &post.NumComments, &post.TopComments, &post.FetchedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return post, nil
}

// List retrieves archived posts, optionally restricted to one subreddit,
// highest score first
func (d *DB) List(subreddit string) ([]*ArchivedPost, error) {
	query := `
	SELECT id, subreddit, author, score, title, body, url,
	       num_comments, top_comments, fetched_at
	FROM posts
	`
	var args []interface{}
	if subreddit != "" {
		query += " WHERE subreddit = ?"
		args = append(args, subreddit)
	}
	query += " ORDER BY score DESC"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*ArchivedPost
	for rows.Next() {
		post := &ArchivedPost{}
		err := rows.Scan(
			&post.ID, &post.Subreddit, &post.Author, &post.Score, &post.Title, &post.Body,
			&post.URL, &post.NumComments, &post.TopComments, &post.FetchedAt,
		)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

// Count returns the total number of archived posts
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&count)
	return count, err
}

// Has reports whether a post is already archived
func (d *DB) Has(id string) (bool, error) {
	var one int
	err := d.db.QueryRow("SELECT 1 FROM posts WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
