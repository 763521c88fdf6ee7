package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoFrame means the source had nothing to offer on this tick.
var ErrNoFrame = errors.New("no frame available")

// maxFrameBytes bounds a single snapshot.
const maxFrameBytes = 10 << 20

// FrameSource yields the current camera frame as encoded image bytes.
type FrameSource interface {
	Name() string
	Capture(ctx context.Context) ([]byte, error)
}

// DirSource reads the most recently modified image in a directory, the way a
// camera that drops snapshots into a folder is consumed.
type DirSource struct {
	Dir string
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

func (s DirSource) Name() string { return "dir:" + s.Dir }

func (s DirSource) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}
	var (
		newest string
		newAt  time.Time
	)
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newAt) {
			newest, newAt = e.Name(), info.ModTime()
		}
	}
	if newest == "" {
		return nil, ErrNoFrame
	}
	return os.ReadFile(filepath.Join(s.Dir, newest))
}

// HTTPSource fetches a still image from a camera snapshot URL.
type HTTPSource struct {
	URL  string
	HTTP *http.Client
}

// NewHTTPSource fetches snapshots from url with a 5s timeout.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{URL: url, HTTP: &http.Client{Timeout: 5 * time.Second}}
}

func (s *HTTPSource) Name() string { return s.URL }

// Capture fetches one snapshot. A 204 or 404 answer is ErrNoFrame.
func (s *HTTPSource) Capture(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
		return nil, ErrNoFrame
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("snapshot error: %s", resp.Status)
	}
	frame, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(frame) == 0 {
		return nil, ErrNoFrame
	}
	return frame, nil
}

// ParseSource turns a configured camera string into a FrameSource: http(s)
// URLs are snapshot endpoints, anything else is a directory.
func ParseSource(spec string) (FrameSource, error) {
	spec = strings.TrimSpace(spec)
	switch {
	case spec == "":
		return nil, fmt.Errorf("empty camera source")
	case strings.HasPrefix(spec, "http://"), strings.HasPrefix(spec, "https://"):
		return NewHTTPSource(spec), nil
	default:
		return DirSource{Dir: strings.TrimPrefix(spec, "dir:")}, nil
	}
}
