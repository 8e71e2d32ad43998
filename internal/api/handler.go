// Package api provides HTTP handlers for the contact form API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/contactform/internal/agent"
	"github.com/ashureev/contactform/internal/intake"
	"github.com/ashureev/contactform/internal/store"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// defaultStreamTimeout bounds how long an agent status stream stays open.
const defaultStreamTimeout = 2 * time.Minute

// Submitter runs a form submission.
type Submitter interface {
	Submit(ctx context.Context, email, phone string) (intake.Ack, error)
}

// Handler provides the form endpoints and their shared dependencies.
type Handler struct {
	repo           store.Repository
	runner         agent.Runner
	submitter      Submitter
	originPatterns []string
	streamTimeout  time.Duration
	lifetime       context.Context
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, runner agent.Runner, submitter Submitter, allowedOrigins []string) *Handler {
	return &Handler{
		repo:           repo,
		runner:         runner,
		submitter:      submitter,
		originPatterns: originPatterns(allowedOrigins),
		streamTimeout:  defaultStreamTimeout,
		lifetime:       context.Background(),
	}
}

// WithLifetime bounds work that outlives its request, such as a submission
// whose client went away, by ctx. Cancel ctx on server shutdown.
func (h *Handler) WithLifetime(ctx context.Context) *Handler {
	h.lifetime = ctx
	return h
}

// detach returns a context that keeps the request's values but ignores client
// disconnects. It is cancelled only when the handler's lifetime ends.
func (h *Handler) detach(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	if h.lifetime.Err() != nil {
		cancel()
		return ctx, cancel
	}
	stop := context.AfterFunc(h.lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Result writes the {success, message} envelope used by the form endpoints.
func Result(w http.ResponseWriter, status int, success bool, message string) {
	JSON(w, status, intake.Ack{Success: success, Message: message})
}

// originPatterns converts CORS origins to websocket host patterns.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		if o = strings.TrimRight(o, "/"); o != "" {
			patterns = append(patterns, o)
		}
	}
	return patterns
}
