// Package leadapi is the HTTP client for the lead service, used by operator
// tooling and the offline replay path.
package leadapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("lead api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("lead api: status %d: %s", e.StatusCode, e.Message)
}

// Client talks to one lead service instance. Token may be empty for the
// public intake routes.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger
}

func New(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		logger:     logger.With(slog.String("component", "lead_api_client")),
	}
}

// LeadsURL is where submissions are posted.
func (c *Client) LeadsURL() string {
	return c.baseURL + "/leads"
}

func (c *Client) CreateLead(ctx context.Context, payload map[string]any) (*usecase.CaptureLeadOutput, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode lead: %w", err)
	}
	return c.Replay(ctx, c.LeadsURL(), body)
}

// Replay posts an already encoded submission to target. Used when draining
// the offline queue, where the URL was recorded at enqueue time.
func (c *Client) Replay(ctx context.Context, target string, payload []byte) (*usecase.CaptureLeadOutput, error) {
	var out usecase.CaptureLeadOutput
	if err := c.do(ctx, http.MethodPost, target, bytes.NewReader(payload), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List pages through one conference, or through every lead when
// conferenceID is empty.
func (c *Client) List(ctx context.Context, conferenceID string, limit int, lastKey string) (*usecase.ListLeadsOutput, error) {
	q := url.Values{}
	if conferenceID != "" {
		q.Set("conferenceId", conferenceID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if lastKey != "" {
		q.Set("lastKey", lastKey)
	}

	target := c.LeadsURL()
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	var out usecase.ListLeadsOutput
	if err := c.do(ctx, http.MethodGet, target, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Get(ctx context.Context, conferenceID, leadID string) (*entity.Lead, error) {
	var out entity.Lead
	if err := c.do(ctx, http.MethodGet, c.leadURL(conferenceID, leadID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Update(ctx context.Context, conferenceID, leadID string, patch usecase.AdminPatchInput) (*entity.Lead, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	var out entity.Lead
	if err := c.do(ctx, http.MethodPatch, c.leadURL(conferenceID, leadID), bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, conferenceID, leadID string) (*usecase.DeleteLeadOutput, error) {
	var out usecase.DeleteLeadOutput
	if err := c.do(ctx, http.MethodDelete, c.leadURL(conferenceID, leadID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Export(ctx context.Context, in usecase.ExportInput) (*usecase.ExportOutput, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode export request: %w", err)
	}
	var out usecase.ExportOutput
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/export", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) leadURL(conferenceID, leadID string) string {
	return fmt.Sprintf("%s/leads/%s?%s", c.baseURL, url.PathEscape(leadID),
		url.Values{"conferenceId": {conferenceID}}.Encode())
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, out any) error {
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, target, err)
	}
	if method == http.MethodPost || method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		c.logger.Debug("lead api request failed",
			slog.String("method", method),
			slog.Int("status", resp.StatusCode),
			slog.String("code", apiErr.Code),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}
