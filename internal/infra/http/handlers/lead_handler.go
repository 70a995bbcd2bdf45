package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

const maxBodyBytes = 64 << 10

type LeadHandler struct {
	capture     *usecase.CaptureLeadUseCase
	manage      *usecase.ManageLeadsUseCase
	rateLimiter *RateLimiter
	logger      *slog.Logger
}

func NewLeadHandler(capture *usecase.CaptureLeadUseCase, manage *usecase.ManageLeadsUseCase, limiter *RateLimiter, logger *slog.Logger) *LeadHandler {
	return &LeadHandler{
		capture:     capture,
		manage:      manage,
		rateLimiter: limiter,
		logger:      logger,
	}
}

// CaptureLead handles POST /leads from the public form.
func (h *LeadHandler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	clientIP := getClientIP(r)
	if h.rateLimiter != nil && !h.rateLimiter.Allow(clientIP) {
		middleware.RecordLeadRejected("rate_limited")
		writeErrorResponse(w, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many requests. Please try again later.")
		return
	}

	var raw map[string]any
	if err := decodeBody(w, r, &raw); err != nil {
		middleware.RecordLeadRejected("invalid_json")
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeBadRequest, "Invalid JSON")
		return
	}

	out, err := h.capture.Execute(r.Context(), raw, usecase.RequestMetadata{
		SourceIP:  clientIP,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if usecase.IsDomainError(err) {
			middleware.RecordLeadRejected("validation")
		}
		writeUsecaseError(w, h.logger, err)
		return
	}

	middleware.RecordLeadCaptured()
	writeJSON(w, http.StatusCreated, out)
}

// ListLeads handles GET /leads?conferenceId&limit&lastKey.
func (h *LeadHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	out, err := h.manage.List(r.Context(), usecase.ListLeadsInput{
		ConferenceID: q.Get("conferenceId"),
		Limit:        limit,
		Cursor:       q.Get("lastKey"),
	})
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *LeadHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	out, err := h.manage.Get(r.Context(), r.URL.Query().Get("conferenceId"), chi.URLParam(r, "id"))
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *LeadHandler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	var in usecase.AdminPatchInput
	if err := decodeBody(w, r, &in); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeBadRequest, "Invalid JSON")
		return
	}

	out, err := h.manage.UpdateAdmin(r.Context(), r.URL.Query().Get("conferenceId"), chi.URLParam(r, "id"), in)
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *LeadHandler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	out, err := h.manage.Delete(r.Context(), r.URL.Query().Get("conferenceId"), chi.URLParam(r, "id"))
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	middleware.RecordLeadDeleted()
	writeJSON(w, http.StatusOK, out)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON body")
	}
	return nil
}

// getClientIP prefers the left-most X-Forwarded-For entry set by the proxy.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimiter is a fixed-window counter per client IP. A limit <= 0
// disables it.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	count     int
	lastReset time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		done:     make(chan struct{}),
	}

	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Allow(ip string) bool {
	if rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	now := time.Now()

	if !exists {
		rl.visitors[ip] = &visitor{count: 1, lastReset: now}
		return true
	}

	if now.Sub(v.lastReset) > rl.window {
		v.count = 1
		v.lastReset = now
		return true
	}

	v.count++
	return v.count <= rl.limit
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for ip, v := range rl.visitors {
				if now.Sub(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}
