package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"apollo/internal/config"
)

const (
	// Reddit caps listings at 100 items per page.
	perPageMax = 100

	// Attempts made against a throttling API before giving up.
	rateLimitAttempts = 3
)

// Client is an authenticated Reddit API client. It exchanges the script app
// credentials for a bearer token on first use and refreshes it when expired.
type Client struct {
	authURL    string
	apiURL     string
	userAgent  string
	clientID   string
	secret     string
	httpClient *http.Client

	retryDelay  time.Duration
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new Reddit API client from loaded configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		authURL:   "https://www.reddit.com",
		apiURL:    "https://oauth.reddit.com",
		userAgent: cfg.UserAgent(),
		clientID:  cfg.ClientID,
		secret:    cfg.ClientSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryDelay: 2 * time.Second,
	}
}

// NewClientWithEndpoints creates a client against alternate auth and API
// hosts, e.g. a local proxy or fixture server.
func NewClientWithEndpoints(cfg *config.Config, authURL, apiURL string) *Client {
	c := NewClient(cfg)
	c.authURL = authURL
	c.apiURL = apiURL
	return c
}

// ensureToken fetches an access token via the client_credentials grant if the
// current one is missing or about to expire.
func (c *Client) ensureToken(ctx context.Context) error {
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, "POST", c.authURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("token endpoint returned %d: %w", resp.StatusCode, ErrAuthentication)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token endpoint returned unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read token response: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return fmt.Errorf("unmarshal token response: %w", err)
	}
	if tok.AccessToken == "" {
		// Reddit answers 200 with an error payload for bad script credentials.
		return fmt.Errorf("empty access token: %w", ErrAuthentication)
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return nil
}

// get performs an authenticated GET against the API host and returns the raw
// body. Throttling responses are retried a bounded number of times with
// backoff; a transient transport failure is retried once.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	reqURL := c.apiURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	delay := c.retryDelay
	transportRetried := false

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if !transportRetried && ctx.Err() == nil {
				transportRetried = true
				continue
			}
			return nil, fmt.Errorf("do request: %w", err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			if readErr != nil {
				return nil, fmt.Errorf("read response: %w", readErr)
			}
			return body, nil
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("GET %s returned 401: %w", path, ErrAuthentication)
		case http.StatusForbidden, http.StatusNotFound:
			return nil, fmt.Errorf("GET %s returned %d: %w", path, resp.StatusCode, ErrNotFound)
		case http.StatusTooManyRequests:
			if attempt >= rateLimitAttempts {
				return nil, fmt.Errorf("GET %s throttled after %d attempts: %w", path, attempt, ErrRateLimited)
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		default:
			return nil, fmt.Errorf("GET %s returned unexpected status %d", path, resp.StatusCode)
		}
	}
}

// paginate walks a submission listing endpoint via the after cursor until
// limit submissions are collected or the listing is exhausted. A limit of 0
// means one full page.
func (c *Client) paginate(ctx context.Context, path string, params url.Values, limit int) ([]SubmissionData, error) {
	if limit <= 0 {
		limit = perPageMax
	}

	var out []SubmissionData
	after := ""

	for len(out) < limit {
		page := perPageMax
		if remaining := limit - len(out); remaining < page {
			page = remaining
		}
		params.Set("limit", strconv.Itoa(page))
		if after != "" {
			params.Set("after", after)
		}

		body, err := c.get(ctx, path, params)
		if err != nil {
			return nil, err
		}

		var listing submissionListing
		if err := json.Unmarshal(body, &listing); err != nil {
			return nil, fmt.Errorf("unmarshal listing: %w", err)
		}
		if len(listing.Data.Children) == 0 {
			break
		}

		for _, child := range listing.Data.Children {
			out = append(out, child.Data)
		}

		after = listing.Data.After
		if after == "" {
			break
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Search queries a subreddit's search endpoint, restricted to the subreddit,
// with the given sort and time interval.
func (c *Client) Search(ctx context.Context, subreddit, query, sort, interval string, limit int) ([]SubmissionData, error) {
	params := url.Values{
		"q":           {query},
		"restrict_sr": {"1"},
		"sort":        {sort},
		"t":           {interval},
	}
	subs, err := c.paginate(ctx, fmt.Sprintf("/r/%s/search", subreddit), params, limit)
	if err != nil {
		return nil, fmt.Errorf("search r/%s: %w", subreddit, err)
	}
	return subs, nil
}

// Top fetches the subreddit's top listing for the given time interval.
func (c *Client) Top(ctx context.Context, subreddit, interval string, limit int) ([]SubmissionData, error) {
	params := url.Values{"t": {interval}}
	subs, err := c.paginate(ctx, fmt.Sprintf("/r/%s/top", subreddit), params, limit)
	if err != nil {
		return nil, fmt.Errorf("top r/%s: %w", subreddit, err)
	}
	return subs, nil
}

// Comments fetches a post's comments ranked by Reddit's confidence sort. The
// response holds two listings, the post itself then its comment tree; only
// real comments ("t1" things) from the second listing are returned, in
// upstream order.
func (c *Client) Comments(ctx context.Context, subreddit, postID string, limit int) ([]CommentData, error) {
	params := url.Values{
		"sort":  {"confidence"},
		"limit": {strconv.Itoa(limit)},
		"depth": {"1"},
	}

	body, err := c.get(ctx, fmt.Sprintf("/r/%s/comments/%s", subreddit, postID), params)
	if err != nil {
		return nil, fmt.Errorf("comments for %s: %w", postID, err)
	}

	var pages []commentListing
	if err := json.Unmarshal(body, &pages); err != nil {
		return nil, fmt.Errorf("unmarshal comments: %w", err)
	}
	if len(pages) < 2 {
		return nil, nil
	}

	var out []CommentData
	for _, child := range pages[1].Data.Children {
		// "more" stubs and other non-comment things are skipped.
		if child.Kind != "t1" {
			continue
		}
		out = append(out, child.Data)
	}
	return out, nil
}

// AboutSubreddit fetches subreddit metadata, validating that the subreddit
// exists and is reachable before any listing call.
func (c *Client) AboutSubreddit(ctx context.Context, subreddit string) (*SubredditInfo, error) {
	body, err := c.get(ctx, fmt.Sprintf("/r/%s/about", subreddit), nil)
	if err != nil {
		return nil, fmt.Errorf("about r/%s: %w", subreddit, err)
	}

	var about aboutResponse
	if err := json.Unmarshal(body, &about); err != nil {
		return nil, fmt.Errorf("unmarshal about: %w", err)
	}
	if about.Data.SubredditType == "" {
		// Search queries for unknown names answer 200 with an empty shell.
		return nil, fmt.Errorf("r/%s has no metadata: %w", subreddit, ErrNotFound)
	}

	return &about.Data, nil
}
