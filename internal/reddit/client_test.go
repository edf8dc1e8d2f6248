package reddit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"apollo/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		Username:     "tester",
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClientWithEndpoints(testConfig(), server.URL, server.URL)
	client.retryDelay = time.Millisecond
	return client, server
}

// tokenHandler answers the OAuth endpoint with a valid token.
func tokenHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Helper()
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-client" || pass != "test-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.FormValue("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fake-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}
}

func submission(id string) map[string]any {
	return map[string]any{
		"id":           id,
		"author":       "author-" + id,
		"score":        42,
		"title":        "title " + id,
		"selftext":     "body " + id,
		"permalink":    "/r/golang/comments/" + id + "/slug/",
		"num_comments": 3,
		"created_utc":  float64(time.Now().Unix()),
	}
}

func listingBody(after string, subs []map[string]any) []byte {
	children := make([]map[string]any, 0, len(subs))
	for _, sub := range subs {
		children = append(children, map[string]any{"kind": "t3", "data": sub})
	}
	body, _ := json.Marshal(map[string]any{
		"kind": "Listing",
		"data": map[string]any{"after": after, "children": children},
	})
	return body
}

func TestSearchPaginates(t *testing.T) {
	var pages []int

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", tokenHandler(t))
	mux.HandleFunc("/r/golang/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer fake-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		pages = append(pages, limit)

		if r.URL.Query().Get("after") == "" {
			subs := make([]map[string]any, 0, 100)
			for i := range 100 {
				subs = append(subs, submission(fmt.Sprintf("p%03d", i)))
			}
			w.Write(listingBody("t3_cursor", subs))
			return
		}
		subs := make([]map[string]any, 0, 50)
		for i := 100; i < 150; i++ {
			subs = append(subs, submission(fmt.Sprintf("p%03d", i)))
		}
		w.Write(listingBody("", subs))
	})

	client, _ := newTestClient(t, mux)

	subs, err := client.Search(t.Context(), "golang", "generics", "hot", "day", 150)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(subs) != 150 {
		t.Fatalf("got %d submissions, want 150", len(subs))
	}
	if subs[0].ID != "p000" || subs[149].ID != "p149" {
		t.Errorf("upstream order not preserved: first=%s last=%s", subs[0].ID, subs[149].ID)
	}
	if len(pages) != 2 {
		t.Errorf("made %d page requests, want 2", len(pages))
	}
}

func TestSearchStopsAtLimit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", tokenHandler(t))
	mux.HandleFunc("/r/golang/search", func(w http.ResponseWriter, r *http.Request) {
		subs := []map[string]any{submission("a"), submission("b"), submission("c")}
		w.Write(listingBody("t3_more", subs))
	})

	client, _ := newTestClient(t, mux)

	subs, err := client.Search(t.Context(), "golang", "x", "hot", "day", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("got %d submissions, want 3", len(subs))
	}
}

func TestAuthenticationErrorFromTokenEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client, _ := newTestClient(t, mux)

	_, err := client.Top(t.Context(), "golang", "year", 10)
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("err = %v, want ErrAuthentication", err)
	}
}

func TestAuthenticationErrorFromEmptyToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		// Reddit answers 200 with an error body for bad script credentials.
		json.NewEncoder(w).Encode(map[string]any{"error": 401})
	})

	client, _ := newTestClient(t, mux)

	_, err := client.Top(t.Context(), "golang", "year", 10)
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("err = %v, want ErrAuthentication", err)
	}
}

func TestNotFoundSubreddit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", tokenHandler(t))
	mux.HandleFunc("/r/doesnotexist/about", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client, _ := newTestClient(t, mux)

	_, err := client.AboutSubreddit(t.Context(), "doesnotexist")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestNotFoundFromEmptyAboutPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", tokenHandler(t))
	mux.HandleFunc("/r/ghost/about", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"kind": "t5", "data": map[string]any{}})
	})

	client, _ := newTestClient(t, mux)

	_, err := client.AboutSubreddit(t.Context(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRateLimitRetriesAreBounded(t *testing.T) {
	attempts := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", tokenHandler(t))
	mux.HandleFunc("/r/golang/top", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client, _ := newTestClient(t, mux)

	_, err := client.Top(t.Context(), "golang", "year", 10)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if attempts != rateLimitAttempts {
		t.Errorf("made %d attempts, want %d", attempts, rateLimitAttempts)
	}
}

func TestRateLimitRecovers(t *testing.T) {
	attempts := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", tokenHandler(t))
	mux.HandleFunc("/r/golang/top", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(listingBody("", []map[string]any{submission("a")}))
	})

	client, _ := newTestClient(t, mux)

	subs, err := client.Top(t.Context(), "golang", "year", 10)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("got %d submissions, want 1", len(subs))
	}
}

func TestCommentsSkipsNonCommentThings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", tokenHandler(t))
	mux.HandleFunc("/r/golang/comments/abc", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sort"); got != "confidence" {
			t.Errorf("sort = %q, want confidence", got)
		}
		body, _ := json.Marshal([]map[string]any{
			{
				"kind": "Listing",
				"data": map[string]any{"children": []map[string]any{
					{"kind": "t3", "data": submission("abc")},
				}},
			},
			{
				"kind": "Listing",
				"data": map[string]any{"children": []map[string]any{
					{"kind": "t1", "data": map[string]any{"author": "u1", "body": "first", "score": 10}},
					{"kind": "t1", "data": map[string]any{"author": "u2", "body": "second", "score": 5}},
					{"kind": "more", "data": map[string]any{}},
					{"kind": "t1", "data": map[string]any{"author": "u3", "body": "third", "score": 1}},
				}},
			},
		})
		w.Write(body)
	})

	client, _ := newTestClient(t, mux)

	comments, err := client.Comments(t.Context(), "golang", "abc", 10)
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("got %d comments, want 3", len(comments))
	}
	if comments[0].Body != "first" || comments[2].Body != "third" {
		t.Errorf("upstream comment order not preserved: %+v", comments)
	}
}
