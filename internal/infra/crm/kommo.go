// Package crm forwards captured leads to the sales team's Kommo pipeline.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

type Kommo struct {
	apiToken   string
	baseURL    string
	statusID   int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewKommo builds a client for baseURL (e.g. https://acme.kommo.com/api/v4).
// statusID is the pipeline stage new leads land in; 0 leaves it to Kommo.
func NewKommo(baseURL, apiToken string, statusID int, logger *slog.Logger) *Kommo {
	return &Kommo{
		apiToken:   apiToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		statusID:   statusID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With(slog.String("component", "kommo")),
	}
}

// NotifyNewLead creates (or reuses, matched by e-mail) a contact and opens a
// Kommo lead linked to it.
func (c *Kommo) NotifyNewLead(ctx context.Context, lead entity.Lead) error {
	contactID, err := c.findOrCreateContact(ctx, lead)
	if err != nil {
		return fmt.Errorf("kommo contact: %w", err)
	}

	tags := []map[string]any{{"name": lead.ConferenceID}}
	for _, t := range lead.Tags {
		tags = append(tags, map[string]any{"name": t})
	}
	item := map[string]any{
		"name": fmt.Sprintf("%s %s - %s", lead.FirstName, lead.LastName, lead.Company),
		"_embedded": map[string]any{
			"tags":     tags,
			"contacts": []map[string]any{{"id": contactID}},
		},
	}
	if c.statusID != 0 {
		item["status_id"] = c.statusID
	}

	var result embeddedIDs
	if err := c.do(ctx, http.MethodPost, "/leads", []map[string]any{item}, &result); err != nil {
		return fmt.Errorf("kommo lead: %w", err)
	}
	if len(result.Embedded.Leads) == 0 {
		return fmt.Errorf("kommo lead: empty response")
	}

	c.logger.Info("lead forwarded",
		slog.String("lead_id", lead.LeadID),
		slog.Int("kommo_lead_id", result.Embedded.Leads[0].ID),
		slog.Int("kommo_contact_id", contactID),
	)
	return nil
}

type embeddedIDs struct {
	Embedded struct {
		Leads []struct {
			ID int `json:"id"`
		} `json:"leads"`
		Contacts []struct {
			ID int `json:"id"`
		} `json:"contacts"`
	} `json:"_embedded"`
}

func (c *Kommo) findOrCreateContact(ctx context.Context, lead entity.Lead) (int, error) {
	var found embeddedIDs
	err := c.do(ctx, http.MethodGet, "/contacts?query="+url.QueryEscape(lead.Email), nil, &found)
	if err != nil {
		return 0, err
	}
	if len(found.Embedded.Contacts) > 0 {
		return found.Embedded.Contacts[0].ID, nil
	}

	fields := []map[string]any{{
		"field_code": "EMAIL",
		"values":     []map[string]any{{"value": lead.Email, "enum_code": "WORK"}},
	}}
	if lead.Phone != "" {
		fields = append(fields, map[string]any{
			"field_code": "PHONE",
			"values":     []map[string]any{{"value": lead.Phone, "enum_code": "WORK"}},
		})
	}
	contact := map[string]any{
		"first_name":           lead.FirstName,
		"last_name":            lead.LastName,
		"custom_fields_values": fields,
	}

	var created embeddedIDs
	if err := c.do(ctx, http.MethodPost, "/contacts", []map[string]any{contact}, &created); err != nil {
		return 0, err
	}
	if len(created.Embedded.Contacts) == 0 {
		return 0, fmt.Errorf("contact not returned")
	}
	return created.Embedded.Contacts[0].ID, nil
}

func (c *Kommo) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Kommo answers an empty search with 204
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(raw))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
