package leadapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "tok", 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCreateLead(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/leads", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "expo", body["conferenceId"])

		writeJSON(w, http.StatusCreated, usecase.CaptureLeadOutput{Success: true, LeadID: "L1", Message: "Lead captured successfully"})
	})

	out, err := c.CreateLead(context.Background(), map[string]any{"conferenceId": "expo"})
	require.NoError(t, err)
	assert.Equal(t, "L1", out.LeadID)
}

func TestAPIErrorDecoding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid email format", "code": "BAD_REQUEST"})
	})

	_, err := c.CreateLead(context.Background(), map[string]any{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
	assert.Equal(t, "Invalid email format", apiErr.Message)
}

func TestListSendsQueryAndToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "expo", r.URL.Query().Get("conferenceId"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "abc", r.URL.Query().Get("lastKey"))
		_, _ = io.WriteString(w, `{"leads":[{"leadId":"L1","conferenceId":"expo","createdAt":"2025-03-14T09:26:53.589Z"}],"nextKey":"n","count":1}`)
	})

	out, err := c.List(context.Background(), "expo", 10, "abc")
	require.NoError(t, err)
	require.Len(t, out.Leads, 1)
	assert.Equal(t, "L1", out.Leads[0].LeadID)
	require.NotNil(t, out.NextKey)
	assert.Equal(t, "n", *out.NextKey)
}

func TestListWithoutConferenceOmitsParam(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leads", r.URL.Path)
		_, present := r.URL.Query()["conferenceId"]
		assert.False(t, present)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, `{"leads":[],"nextKey":null,"count":0}`)
	})

	out, err := c.List(context.Background(), "", 2, "")
	require.NoError(t, err)
	assert.Empty(t, out.Leads)
	assert.Nil(t, out.NextKey)
}

func TestGetDecodesBareLead(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leads/L7", r.URL.Path)
		assert.Equal(t, "expo", r.URL.Query().Get("conferenceId"))
		writeJSON(w, http.StatusOK, map[string]any{"leadId": "L7", "conferenceId": "expo", "email": "ada@example.com", "status": "new"})
	})

	lead, err := c.Get(context.Background(), "expo", "L7")
	require.NoError(t, err)
	assert.Equal(t, "L7", lead.LeadID)
	assert.Equal(t, "ada@example.com", lead.Email)
	assert.Equal(t, entity.StatusNew, lead.Status)
}

func TestUpdateAndExport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPatch && r.URL.Path == "/leads/L1":
			assert.Equal(t, "expo", r.URL.Query().Get("conferenceId"))
			var in map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "contacted", in["status"])
			writeJSON(w, http.StatusOK, map[string]any{"leadId": "L1", "conferenceId": "expo", "status": "contacted"})
		case r.Method == http.MethodPost && r.URL.Path == "/export":
			writeJSON(w, http.StatusOK, usecase.ExportOutput{Success: true, DownloadURL: "http://x/d", FileName: "f.csv", Count: 2, ExpiresIn: 3600})
		default:
			http.NotFound(w, r)
		}
	})

	status := "contacted"
	lead, err := c.Update(context.Background(), "expo", "L1", usecase.AdminPatchInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "L1", lead.LeadID)
	assert.Equal(t, entity.StatusContacted, lead.Status)

	exp, err := c.Export(context.Background(), usecase.ExportInput{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, 2, exp.Count)
	assert.Equal(t, "f.csv", exp.FileName)
}

func TestBulkDeletePartialFailure(t *testing.T) {
	fail := map[string]bool{"L2": true, "L4": true}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/leads/")
		if fail[id] {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Lead not found", "code": "NOT_FOUND"})
			return
		}
		writeJSON(w, http.StatusOK, usecase.DeleteLeadOutput{Success: true, LeadID: id, ConferenceID: "expo"})
	})

	var keys []entity.LeadKey
	for _, id := range []string{"L1", "L2", "L3", "L4", "L5"} {
		keys = append(keys, entity.LeadKey{ConferenceID: "expo", LeadID: id})
	}

	res, err := c.BulkDelete(context.Background(), keys)
	require.NoError(t, err)
	assert.Len(t, res.Succeeded, 3)
	require.Len(t, res.Failed, 2)

	failed := []string{res.Failed[0].Key.LeadID, res.Failed[1].Key.LeadID}
	assert.ElementsMatch(t, []string{"L2", "L4"}, failed)
	var apiErr *APIError
	assert.True(t, errors.As(res.Failed[0].Err, &apiErr))
}

func TestBulkDeleteBatches(t *testing.T) {
	var (
		inFlight, peak atomic.Int32
		mu             sync.Mutex
		calls          int
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)

		mu.Lock()
		calls++
		mu.Unlock()
		writeJSON(w, http.StatusOK, usecase.DeleteLeadOutput{Success: true})
	})

	keys := make([]entity.LeadKey, 12)
	for i := range keys {
		keys[i] = entity.LeadKey{ConferenceID: "expo", LeadID: string(rune('a' + i))}
	}

	start := time.Now()
	res, err := c.BulkDelete(context.Background(), keys)
	require.NoError(t, err)

	assert.Len(t, res.Succeeded, 12)
	assert.Equal(t, 12, calls)
	assert.LessOrEqual(t, peak.Load(), int32(BulkBatchSize))
	// three batches, two pauses
	assert.GreaterOrEqual(t, time.Since(start), 2*BulkBatchPause)
}

func TestBulkDeleteStopsOnCancel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, usecase.DeleteLeadOutput{Success: true})
	})

	ctx, cancel := context.WithCancel(context.Background())
	keys := make([]entity.LeadKey, 10)
	for i := range keys {
		keys[i] = entity.LeadKey{ConferenceID: "expo", LeadID: string(rune('a' + i))}
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	res, err := c.BulkDelete(ctx, keys)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, res.Succeeded, BulkBatchSize)
}
