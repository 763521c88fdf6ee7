// Package apiclient is the station's client for the attendance API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"staffattend/internal/attendance"
	"staffattend/internal/matcher"
)

// Client talks to the /v1 API.
type Client struct {
	BaseURL   string
	StationID string
	HTTP      *http.Client
}

// New returns a client for the API at baseURL that identifies as stationID.
func New(baseURL, stationID string) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		StationID: stationID,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
	}
}

type recordBody struct {
	EmployeeID string `json:"employeeId"`
	Date       string `json:"date"`
	Time       string `json:"time,omitempty"`
	Status     string `json:"status"`
	Photo      string `json:"photo,omitempty"`
}

// Record posts a Present record. 201 maps to Created and 200 to
// AlreadyMarked; error statuses map to the attendance sentinel errors.
func (c *Client) Record(ctx context.Context, req attendance.Request) (attendance.Result, error) {
	body := recordBody{
		EmployeeID: req.EmployeeID,
		Date:       req.Date.String(),
		Status:     string(attendance.StatusPresent),
		Photo:      req.Photo,
	}
	if req.Time != nil {
		body.Time = req.Time.String()
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/attendance", body)
	if err != nil {
		return attendance.Result{}, fmt.Errorf("%w: %v", attendance.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var rec attendance.Record
		if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
			return attendance.Result{}, fmt.Errorf("decode record: %w", err)
		}
		return attendance.Result{Outcome: attendance.Created, Record: &rec}, nil
	case http.StatusOK:
		return attendance.Result{Outcome: attendance.AlreadyMarked}, nil
	case http.StatusBadRequest:
		return attendance.Result{}, fmt.Errorf("%w: %s", attendance.ErrInvalidRequest, errorMessage(resp))
	case http.StatusNotFound:
		return attendance.Result{}, fmt.Errorf("%w: %s", attendance.ErrUnknownEmployee, errorMessage(resp))
	}
	return attendance.Result{}, fmt.Errorf("%w: %s: %s", attendance.ErrStoreUnavailable, resp.Status, errorMessage(resp))
}

// Gallery fetches the enrolled descriptors.
func (c *Client) Gallery(ctx context.Context) (matcher.Gallery, error) {
	var g matcher.Gallery
	if err := c.getJSON(ctx, "/v1/gallery", &g); err != nil {
		return matcher.Gallery{}, err
	}
	return g, nil
}

// GalleryVersion fetches the current gallery version.
func (c *Client) GalleryVersion(ctx context.Context) (int64, error) {
	var out struct {
		Version int64 `json:"version"`
	}
	if err := c.getJSON(ctx, "/v1/gallery/version", &out); err != nil {
		return 0, err
	}
	return out.Version, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s: %s", path, resp.Status, errorMessage(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.StationID != "" {
		req.Header.Set("X-Station-ID", c.StationID)
	}
	return c.HTTP.Do(req)
}

func errorMessage(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var out struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &out) == nil && out.Error != "" {
		return out.Error
	}
	return strings.TrimSpace(string(b))
}
