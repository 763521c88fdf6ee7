package faceclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoFace is returned when the service found no face in the image.
var ErrNoFace = errors.New("no face detected")

// skipDims is the embedding size produced in Skip mode.
const skipDims = 16

// EmbedResult contains the face embedding and detection confidence.
type EmbedResult struct {
	Embedding     []float32
	Score         float64
	FacesDetected int
}

// Client calls the face embedding microservice.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with configurable timeout.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // Face processing can take time
		},
	}
}

// Embed returns the descriptor of the most prominent face in image.
func (c *Client) Embed(ctx context.Context, image []byte) ([]float32, error) {
	result, err := c.EmbedWithScore(ctx, image)
	if err != nil {
		return nil, err
	}
	return result.Embedding, nil
}

// EmbedBase64 is Embed for photos stored as base64 text. A data URL prefix
// is accepted.
func (c *Client) EmbedBase64(ctx context.Context, photo string) ([]float32, error) {
	if i := strings.Index(photo, ","); strings.HasPrefix(photo, "data:") && i > 0 {
		photo = photo[i+1:]
	}
	img, err := base64.StdEncoding.DecodeString(strings.TrimSpace(photo))
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}
	return c.Embed(ctx, img)
}

// EmbedWithScore requests an embedding and returns full result including score.
func (c *Client) EmbedWithScore(ctx context.Context, image []byte) (*EmbedResult, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("image required")
	}
	if c.Skip {
		return &EmbedResult{Embedding: fakeEmbedding(image), Score: 1, FacesDetected: 1}, nil
	}

	body, err := json.Marshal(map[string]string{"image": base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, ErrNoFace
	}
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Embedding     []float32 `json:"embedding"`
		Score         float64   `json:"score"`
		FacesDetected int       `json:"faces_detected"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode face service response: %w", err)
	}
	if out.FacesDetected == 0 || len(out.Embedding) == 0 {
		return nil, ErrNoFace
	}

	return &EmbedResult{
		Embedding:     out.Embedding,
		Score:         out.Score,
		FacesDetected: out.FacesDetected,
	}, nil
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}

	return nil
}

// fakeEmbedding maps identical images to identical unit-range vectors so a
// station in Skip mode recognizes whoever was enrolled with the same picture.
func fakeEmbedding(image []byte) []float32 {
	sum := sha256.Sum256(image)
	out := make([]float32, skipDims)
	for i := range out {
		out[i] = float32(sum[i]) / 255
	}
	return out
}
