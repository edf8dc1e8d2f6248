package archive

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"apollo/internal/config"
	"apollo/internal/reddit"
	"apollo/internal/scraper"
	"apollo/internal/search"
	"apollo/internal/storage"
)

// fakeTopServer serves a token, subreddit metadata and a fixed top listing.
func fakeTopServer(t *testing.T, subreddit string, ids []string) *httptest.Server {
	t.Helper()
	now := float64(time.Now().Unix())

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "bearer", "expires_in": 3600})
	})
	mux.HandleFunc(fmt.Sprintf("/r/%s/about", subreddit), func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"kind": "t5",
			"data": map[string]any{"display_name": subreddit, "subreddit_type": "public"},
		})
	})
	mux.HandleFunc(fmt.Sprintf("/r/%s/top", subreddit), func(w http.ResponseWriter, r *http.Request) {
		children := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			children = append(children, map[string]any{"kind": "t3", "data": map[string]any{
				"id":           id,
				"author":       "author-" + id,
				"score":        10,
				"title":        "title " + id,
				"selftext":     "body " + id,
				"permalink":    "/r/" + subreddit + "/comments/" + id + "/slug/",
				"num_comments": 1,
				"created_utc":  now,
			}})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"kind": "Listing",
			"data": map[string]any{"after": "", "children": children},
		})
	})
	mux.HandleFunc(fmt.Sprintf("/r/%s/comments/", subreddit), func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"kind": "Listing", "data": map[string]any{"children": []map[string]any{}}},
			{"kind": "Listing", "data": map[string]any{"children": []map[string]any{
				{"kind": "t1", "data": map[string]any{"author": "u1", "body": "hi", "score": 2}},
			}}},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRunArchivesAndReindexes(t *testing.T) {
	server := fakeTopServer(t, "golang", []string{"a1", "a2"})

	cfg := &config.Config{ClientID: "id", ClientSecret: "secret", Username: "u"}
	sc := scraper.New(reddit.NewClientWithEndpoints(cfg, server.URL, server.URL))

	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "apollo.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	defer db.Close()

	idx, err := search.Open(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatalf("search.Open: %v", err)
	}
	defer idx.Close()

	worker := NewWorker(sc, db, idx)

	stats, err := worker.Run(t.Context(), "golang")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Fetched != 2 || stats.New != 2 || stats.Updated != 0 || stats.Errors != 0 {
		t.Errorf("first run stats = %+v", stats)
	}

	// A second run over the same listing updates rather than duplicates.
	stats, err = worker.Run(t.Context(), "golang")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.New != 0 || stats.Updated != 2 {
		t.Errorf("second run stats = %+v", stats)
	}

	count, err := db.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("archive count = %d, want 2", count)
	}

	indexCount, err := idx.Count()
	if err != nil {
		t.Fatalf("index Count: %v", err)
	}
	if indexCount != 2 {
		t.Errorf("index count = %d, want 2", indexCount)
	}

	archived, err := db.Get("a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if archived == nil {
		t.Fatal("post a1 missing from archive")
	}
	var comments []scraper.Comment
	if err := json.Unmarshal([]byte(archived.TopComments), &comments); err != nil {
		t.Fatalf("archived comments are not valid JSON: %v", err)
	}
	if len(comments) != 1 || comments[0].Author != "u1" {
		t.Errorf("archived comments = %+v", comments)
	}
}
