package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"

	"apollo/internal/archive"
	"apollo/internal/config"
	"apollo/internal/output"
	"apollo/internal/reddit"
	"apollo/internal/scraper"
	"apollo/internal/search"
	"apollo/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	if command == "help" || command == "--help" || command == "-h" {
		printUsage()
		return
	}

	switch command {
	case "keyword-search":
		runKeywordSearch(args)
	case "top-posts":
		runTopPosts(args)
	case "top-comments":
		runTopComments(args)
	case "archive":
		runArchive(args)
	case "search":
		runSearch(args)
	case "stats":
		runStats()
	case "watch":
		runWatch(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// usageExamples keeps flags before positional arguments; flag parsing stops
// at the first non-flag token.
var usageExamples = []string{
	`apollo keyword-search learnpython "web scraping"`,
	`apollo keyword-search -sorting=top -interval=month golang generics`,
	`apollo top-posts AskReddit`,
	`apollo top-comments -output=dataclass AskReddit`,
	`apollo archive AskReddit`,
	`apollo search "machine learning"`,
	`apollo watch -schedule=@daily AskReddit`,
}

func printUsage() {
	fmt.Println("Apollo - Reddit subreddit scraper")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  apollo <command> [flags] <args>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  keyword-search <subreddit> <keyword>   Search posts whose title or body contains the keyword")
	fmt.Println("  top-posts <subreddit>                  Top posts of the last 26 weeks")
	fmt.Println("  top-comments <subreddit>               Top 10 comments of each top post of the last 26 weeks")
	fmt.Println("  archive <subreddit>                    Fetch top posts into the local archive + search index")
	fmt.Println("  search <query>                         Full-text search over the local archive")
	fmt.Println("  stats                                  Show archive statistics")
	fmt.Println("  watch <subreddit>                      Archive on a cron schedule until interrupted")
	fmt.Println()
	fmt.Println("Keyword-search Flags:")
	fmt.Println("  -sorting=<mode>     relevance, hot, top, new, comments (default hot)")
	fmt.Println("  -interval=<window>  hour, day, week, month, year, all (default day)")
	fmt.Println("  -limit=<n>          maximum number of records (default 100)")
	fmt.Println("  -output=<format>    json or dataclass (default json)")
	fmt.Println()
	fmt.Println("Top-posts / Top-comments Flags:")
	fmt.Println("  -limit=<n>          maximum number of records (default 100)")
	fmt.Println("  -output=<format>    json or dataclass (default json)")
	fmt.Println()
	fmt.Println("Watch Flags:")
	fmt.Println("  -schedule=<spec>    cron spec (default @hourly)")
	fmt.Println()
	fmt.Println("Examples:")
	for _, example := range usageExamples {
		fmt.Println("  " + example)
	}
	fmt.Println()
	fmt.Println("Credentials are read from .env or the environment:")
	fmt.Println("  client_id, client_secret, username")
}

// loadConfig loads configuration or exits with a message.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	return cfg
}

// newScraper wires a scraper from loaded configuration.
func newScraper(cfg *config.Config) *scraper.Scraper {
	return scraper.New(reddit.NewClient(cfg))
}

// fatal prints a class-specific message for a pipeline failure and exits.
func fatal(err error) {
	switch {
	case errors.Is(err, reddit.ErrAuthentication):
		log.Fatalf("Error: Reddit rejected the credentials, check client_id and client_secret: %v", err)
	case errors.Is(err, reddit.ErrRateLimited):
		log.Fatalf("Error: Reddit is throttling requests, try again later: %v", err)
	case errors.Is(err, reddit.ErrNotFound):
		log.Fatalf("Error: subreddit not found or not accessible: %v", err)
	case errors.Is(err, reddit.ErrMalformedResponse):
		log.Fatalf("Error: unexpected Reddit response payload: %v", err)
	default:
		log.Fatalf("Error: %v", err)
	}
}

func runKeywordSearch(args []string) {
	flags := flag.NewFlagSet("keyword-search", flag.ExitOnError)
	sorting := flags.String("sorting", "hot", "Sort mode for search results")
	interval := flags.String("interval", "day", "Time interval for search results")
	limit := flags.Int("limit", 100, "Maximum number of records")
	format := flags.String("output", output.FormatJSON, "Output format: json or dataclass")
	flags.Parse(args)

	if flags.NArg() < 2 {
		fmt.Println("Error: subreddit and keyword required")
		fmt.Println("Usage: apollo keyword-search [flags] <subreddit> <keyword>")
		os.Exit(1)
	}
	subreddit := flags.Arg(0)
	keyword := strings.Join(flags.Args()[1:], " ")

	cfg := loadConfig()
	sc := newScraper(cfg)

	fmt.Println("Scraping post data...")
	posts, err := sc.KeywordSearch(context.Background(), subreddit, keyword, *sorting, *interval, *limit)
	if err != nil {
		fatal(err)
	}

	writer := output.NewWriter(cfg.OutputDir)
	path, err := writer.WritePosts(posts, *format)
	if err != nil {
		log.Fatalf("Error writing output: %v", err)
	}

	fmt.Printf("Found %d matching posts\n", len(posts))
	fmt.Printf("Successfully stored command output in %s\n", path)
}

func runTopPosts(args []string) {
	flags := flag.NewFlagSet("top-posts", flag.ExitOnError)
	limit := flags.Int("limit", 100, "Maximum number of records")
	format := flags.String("output", output.FormatJSON, "Output format: json or dataclass")
	flags.Parse(args)

	if flags.NArg() < 1 {
		fmt.Println("Error: subreddit required")
		fmt.Println("Usage: apollo top-posts [flags] <subreddit>")
		os.Exit(1)
	}
	subreddit := flags.Arg(0)

	cfg := loadConfig()
	sc := newScraper(cfg)

	fmt.Println("Scraping post data...")
	posts, err := sc.TopPosts(context.Background(), subreddit, *limit)
	if err != nil {
		fatal(err)
	}

	writer := output.NewWriter(cfg.OutputDir)
	path, err := writer.WritePosts(posts, *format)
	if err != nil {
		log.Fatalf("Error writing output: %v", err)
	}

	fmt.Printf("Found %d posts from the last 26 weeks\n", len(posts))
	fmt.Printf("Successfully stored command output in %s\n", path)
}

func runTopComments(args []string) {
	flags := flag.NewFlagSet("top-comments", flag.ExitOnError)
	limit := flags.Int("limit", 100, "Maximum number of records")
	format := flags.String("output", output.FormatJSON, "Output format: json or dataclass")
	flags.Parse(args)

	if flags.NArg() < 1 {
		fmt.Println("Error: subreddit required")
		fmt.Println("Usage: apollo top-comments [flags] <subreddit>")
		os.Exit(1)
	}
	subreddit := flags.Arg(0)

	cfg := loadConfig()
	sc := newScraper(cfg)

	fmt.Println("Scraping comment data...")
	comments, err := sc.TopComments(context.Background(), subreddit, *limit)
	if err != nil {
		fatal(err)
	}

	writer := output.NewWriter(cfg.OutputDir)
	path, err := writer.WriteComments(comments, *format)
	if err != nil {
		log.Fatalf("Error writing output: %v", err)
	}

	fmt.Printf("Found comments for %d posts\n", len(comments))
	fmt.Printf("Successfully stored command output in %s\n", path)
}

func runArchive(args []string) {
	flags := flag.NewFlagSet("archive", flag.ExitOnError)
	flags.Parse(args)

	if flags.NArg() < 1 {
		fmt.Println("Error: subreddit required")
		fmt.Println("Usage: apollo archive <subreddit>")
		os.Exit(1)
	}
	subreddit := flags.Arg(0)

	cfg := loadConfig()
	worker, cleanup := newArchiveWorker(cfg)
	defer cleanup()

	stats, err := worker.Run(context.Background(), subreddit)
	if err != nil {
		fatal(err)
	}

	fmt.Println()
	fmt.Println("=== Archive Complete ===")
	fmt.Printf("Fetched:  %d\n", stats.Fetched)
	fmt.Printf("New:      %d\n", stats.New)
	fmt.Printf("Updated:  %d\n", stats.Updated)
	fmt.Printf("Errors:   %d\n", stats.Errors)
	fmt.Printf("Duration: %v\n", stats.Duration)
}

func runSearch(args []string) {
	flags := flag.NewFlagSet("search", flag.ExitOnError)
	limit := flags.Int("limit", 10, "Maximum number of results")
	flags.Parse(args)

	if flags.NArg() < 1 {
		fmt.Println("Error: search query required")
		fmt.Println("Usage: apollo search [flags] <query>")
		os.Exit(1)
	}
	query := strings.Join(flags.Args(), " ")

	cfg := loadConfig()

	idx, err := search.Open(indexPath(cfg))
	if err != nil {
		log.Fatalf("Error opening search index: %v", err)
	}
	defer idx.Close()

	results, err := idx.Search(query, *limit)
	if err != nil {
		log.Fatalf("Error searching: %v", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}

	fmt.Printf("\nFound %d results:\n\n", len(results))
	for i, result := range results {
		fmt.Printf("%d. %s\n", i+1, result.Title)
		fmt.Printf("   Subreddit: r/%s\n", result.Subreddit)
		if result.Author != "" {
			fmt.Printf("   Author: %s\n", result.Author)
		}
		fmt.Printf("   URL: %s\n", result.URL)
		fmt.Printf("   Score: %.3f\n", result.Score)

		if snippets, ok := result.Fragments["Body"]; ok && len(snippets) > 0 {
			fmt.Printf("   Preview: %s\n", snippets[0])
		}
		fmt.Println()
	}
}

func runStats() {
	cfg := loadConfig()

	db, err := storage.Open(dbPath(cfg))
	if err != nil {
		log.Fatalf("Error opening archive: %v", err)
	}
	defer db.Close()

	idx, err := search.Open(indexPath(cfg))
	if err != nil {
		log.Fatalf("Error opening search index: %v", err)
	}
	defer idx.Close()

	dbCount, err := db.Count()
	if err != nil {
		log.Fatalf("Error getting archive count: %v", err)
	}

	indexCount, err := idx.Count()
	if err != nil {
		log.Fatalf("Error getting index count: %v", err)
	}

	fmt.Println("=== Archive Statistics ===")
	fmt.Printf("Posts in archive: %d\n", dbCount)
	fmt.Printf("Posts in index:   %d\n", indexCount)
}

func runWatch(args []string) {
	flags := flag.NewFlagSet("watch", flag.ExitOnError)
	schedule := flags.String("schedule", "@hourly", "Cron schedule for archive runs")
	flags.Parse(args)

	if flags.NArg() < 1 {
		fmt.Println("Error: subreddit required")
		fmt.Println("Usage: apollo watch [flags] <subreddit>")
		os.Exit(1)
	}
	subreddit := flags.Arg(0)

	cfg := loadConfig()
	worker, cleanup := newArchiveWorker(cfg)
	defer cleanup()

	c := cron.New()
	_, err := c.AddFunc(*schedule, func() {
		if _, err := worker.Run(context.Background(), subreddit); err != nil {
			log.Printf("Scheduled archive run failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Could not set up cron job: %v", err)
	}

	// Run once immediately, then on the schedule.
	if _, err := worker.Run(context.Background(), subreddit); err != nil {
		fatal(err)
	}

	c.Start()
	fmt.Printf("Watching r/%s on schedule %q. Press Ctrl+C to stop.\n", subreddit, *schedule)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	c.Stop()
	log.Println("Watch stopped.")
}

// newArchiveWorker wires the scraper, archive database and search index. The
// returned cleanup closes both stores.
func newArchiveWorker(cfg *config.Config) (*archive.Worker, func()) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Error creating data directory: %v", err)
	}

	db, err := storage.Open(dbPath(cfg))
	if err != nil {
		log.Fatalf("Error opening archive: %v", err)
	}

	idx, err := search.Open(indexPath(cfg))
	if err != nil {
		db.Close()
		log.Fatalf("Error opening search index: %v", err)
	}

	worker := archive.NewWorker(newScraper(cfg), db, idx)
	cleanup := func() {
		idx.Close()
		db.Close()
	}
	return worker, cleanup
}

func dbPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "apollo.db")
}

func indexPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "bleve")
}
