package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"apollo/internal/storage"
)

// Index wraps a Bleve search index over the post archive
type Index struct {
	index bleve.Index
}

// IndexedPost represents an archived post in the search index
type IndexedPost struct {
	ID        string
	Subreddit string
	Title     string
	Body      string
	Author    string
	URL       string
	Score     int
}

// Result represents a search hit
type Result struct {
	ID        string
	Subreddit string
	Title     string
	Author    string
	URL       string
	Score     float64
	Fragments map[string][]string // Highlighted snippets
}

// Open opens or creates a Bleve index
func Open(path string) (*Index, error) {
	var idx bleve.Index
	var err error

	idx, err = bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		indexMapping := buildIndexMapping()
		idx, err = bleve.New(path, indexMapping)
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// buildIndexMapping creates the index mapping for archived posts
func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Subreddit", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Title", textFieldMapping)
	docMapping.AddFieldMappingsAt("Body", textFieldMapping)
	docMapping.AddFieldMappingsAt("Author", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("URL", bleve.NewTextFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	// Query strings are analyzed with the default analyzer, so indexed
	// fields must use the same one for terms to line up. English stemming
	// applies on both sides.
	indexMapping.DefaultAnalyzer = "en"

	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

// IndexPost adds or updates a post in the index
func (i *Index) IndexPost(post *IndexedPost) error {
	return i.index.Index(post.ID, post)
}

// Delete removes a post from the index
func (i *Index) Delete(id string) error {
	return i.index.Delete(id)
}

// Search performs a query-string search (supports quotes, boolean operators,
// fuzzy ~) over the archive
func (i *Index) Search(queryStr string, limit int) ([]*Result, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	search := bleve.NewSearchRequestOptions(query, limit, 0, false)
	search.Highlight = bleve.NewHighlightWithStyle("html")
	search.Fields = []string{"Subreddit", "Title", "Author", "URL"}

	results, err := i.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var hits []*Result
	for _, hit := range results.Hits {
		result := &Result{
			ID:        hit.ID,
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}

		if subreddit, ok := hit.Fields["Subreddit"].(string); ok {
			result.Subreddit = subreddit
		}
		if title, ok := hit.Fields["Title"].(string); ok {
			result.Title = title
		}
		if author, ok := hit.Fields["Author"].(string); ok {
			result.Author = author
		}
		if url, ok := hit.Fields["URL"].(string); ok {
			result.URL = url
		}

		hits = append(hits, result)
	}

	return hits, nil
}

// Rebuild reindexes every archived post from storage in one batch. The
// progress callback may be nil.
func (i *Index) Rebuild(db *storage.DB, progress func(current, total int)) error {
	posts, err := db.List("")
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}

	batch := i.index.NewBatch()
	for n, post := range posts {
		indexed := &IndexedPost{
			ID:        post.ID,
			Subreddit: post.Subreddit,
			Title:     post.Title,
			Body:      post.Body,
			Author:    post.Author,
			URL:       post.URL,
			Score:     post.Score,
		}

		if err := batch.Index(indexed.ID, indexed); err != nil {
			return fmt.Errorf("batch index %s: %w", post.ID, err)
		}
		if progress != nil {
			progress(n+1, len(posts))
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	return nil
}

// Count returns the number of posts in the index
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
