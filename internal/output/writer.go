package output

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"apollo/internal/scraper"
)

// Supported output formats.
const (
	FormatJSON      = "json"
	FormatDataclass = "dataclass"
)

// Writer persists run results under a single output directory. Every write
// gets a fresh unique filename; prior runs are never overwritten.
type Writer struct {
	dir string
}

// NewWriter creates a Writer rooted at dir. The directory is created on the
// first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WritePosts serializes posts in the requested format and returns the path of
// the file written. JSON mode writes a single array with stable field names;
// dataclass mode writes a gob stream readable back via ReadPosts. An empty
// result still produces a valid file.
func (w *Writer) WritePosts(posts []scraper.Post, format string) (string, error) {
	if posts == nil {
		posts = []scraper.Post{}
	}

	switch strings.ToLower(format) {
	case FormatJSON:
		data, err := json.MarshalIndent(posts, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal posts: %w", err)
		}
		return w.writeFile("json", data)
	case FormatDataclass:
		data, err := encodeGob(posts)
		if err != nil {
			return "", fmt.Errorf("encode posts: %w", err)
		}
		return w.writeFile("gob", data)
	default:
		return "", fmt.Errorf("invalid output type: %s", format)
	}
}

// WriteComments serializes comment lists, one inner list per post, in the
// requested format.
func (w *Writer) WriteComments(comments [][]scraper.Comment, format string) (string, error) {
	if comments == nil {
		comments = [][]scraper.Comment{}
	}

	switch strings.ToLower(format) {
	case FormatJSON:
		data, err := json.MarshalIndent(comments, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal comments: %w", err)
		}
		return w.writeFile("json", data)
	case FormatDataclass:
		data, err := encodeGob(comments)
		if err != nil {
			return "", fmt.Errorf("encode comments: %w", err)
		}
		return w.writeFile("gob", data)
	default:
		return "", fmt.Errorf("invalid output type: %s", format)
	}
}

// ReadPosts reconstructs a dataclass-mode post file into records identical to
// the ones written.
func ReadPosts(path string) ([]scraper.Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	defer f.Close()

	var posts []scraper.Post
	if err := gob.NewDecoder(f).Decode(&posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

// ReadComments reconstructs a dataclass-mode comment file.
func ReadComments(path string) ([][]scraper.Comment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	defer f.Close()

	var comments [][]scraper.Comment
	if err := gob.NewDecoder(f).Decode(&comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFile persists fully serialized data under a unique name. Serialization
// happens before the file exists, so a failed run leaves no partial output.
func (w *Writer) writeFile(ext string, data []byte) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	name := fmt.Sprintf("%s.%s", uuid.NewString()[:8], ext)
	path := filepath.Join(w.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("write output file: %w", err)
	}
	return path, nil
}
