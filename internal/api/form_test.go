//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/contactform/internal/agent"
	"github.com/ashureev/contactform/internal/domain"
	"github.com/ashureev/contactform/internal/intake"
	"github.com/go-chi/chi/v5"
)

type fakeRepo struct {
	mu    sync.Mutex
	users map[int64]*domain.User
	err   error
}

func newFakeRepo(users ...*domain.User) *fakeRepo {
	f := &fakeRepo{users: make(map[int64]*domain.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeRepo) FindByPhone(_ context.Context, phone string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Phone == phone {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) GetUser(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u := f.users[id]
	if u == nil {
		return nil, nil
	}
	copy := *u
	return &copy, nil
}

func (f *fakeRepo) CreateUser(context.Context, string, string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRepo) UpdateData(context.Context, int64, string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRepo) Ping(context.Context) error { return f.err }
func (f *fakeRepo) Close() error               { return nil }

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []submitRequest
	ack   intake.Ack
	err   error
}

func (f *fakeSubmitter) Submit(_ context.Context, email, phone string) (intake.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, submitRequest{Email: email, Phone: phone})
	return f.ack, f.err
}

func newTestRouter(t *testing.T, repo *fakeRepo, sub *fakeSubmitter, delay time.Duration) (http.Handler, *agent.Simulator) {
	t.Helper()
	sim := agent.NewSimulator(agent.Config{Delay: delay}, nil)
	t.Cleanup(sim.Close)
	if sub == nil {
		sub = &fakeSubmitter{}
	}
	h := NewHandler(repo, sim, sub, []string{"*"})
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, sim
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeAck(t *testing.T, rr *httptest.ResponseRecorder) intake.Ack {
	t.Helper()
	var ack intake.Ack
	if err := json.NewDecoder(rr.Body).Decode(&ack); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return ack
}

func TestSubmitSuccess(t *testing.T) {
	sub := &fakeSubmitter{ack: intake.Ack{Success: true, Message: intake.MsgEmailSent}}
	router, _ := newTestRouter(t, newFakeRepo(), sub, time.Hour)

	rr := do(t, router, http.MethodPost, "/api/form/submit", `{"email":"a@x.com","phone":"5551234567"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	ack := decodeAck(t, rr)
	if !ack.Success || ack.Message != "Confirmation Email Sent" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if len(sub.calls) != 1 || sub.calls[0].Email != "a@x.com" || sub.calls[0].Phone != "5551234567" {
		t.Fatalf("unexpected submit calls: %+v", sub.calls)
	}
}

func TestSubmitValidationError(t *testing.T) {
	sub := &fakeSubmitter{
		ack: intake.Ack{Success: false, Message: intake.MsgEmptyInput},
		err: fmt.Errorf("missing: %w", domain.ErrValidation),
	}
	router, _ := newTestRouter(t, newFakeRepo(), sub, time.Hour)

	rr := do(t, router, http.MethodPost, "/api/form/submit", `{"email":"a@x.com","phone":""}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if ack := decodeAck(t, rr); ack.Success || ack.Message != "Empty Email or Phone" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
}

func TestSubmitInternalError(t *testing.T) {
	sub := &fakeSubmitter{err: fmt.Errorf("store: %w", domain.ErrInternal)}
	router, _ := newTestRouter(t, newFakeRepo(), sub, time.Hour)

	rr := do(t, router, http.MethodPost, "/api/form/submit", `{"email":"a@x.com","phone":"1"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	if ack := decodeAck(t, rr); ack.Success || ack.Message != "Server Error" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
}

func TestSubmitMalformedBody(t *testing.T) {
	sub := &fakeSubmitter{}
	router, _ := newTestRouter(t, newFakeRepo(), sub, time.Hour)

	rr := do(t, router, http.MethodPost, "/api/form/submit", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if len(sub.calls) != 0 {
		t.Fatal("expected submitter not to be called")
	}
}

func TestSubmitOversizedBody(t *testing.T) {
	sub := &fakeSubmitter{}
	router, _ := newTestRouter(t, newFakeRepo(), sub, time.Hour)

	body := `{"email":"` + strings.Repeat("a", 2<<20) + `","phone":"5551234567"}`
	rr := do(t, router, http.MethodPost, "/api/form/submit", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if ack := decodeAck(t, rr); ack.Success || ack.Message != "Invalid request body" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if len(sub.calls) != 0 {
		t.Fatal("expected submitter not to be called")
	}
}

// ctxSubmitter reports the state of the context Submit was called with.
type ctxSubmitter struct {
	err error
}

func (c *ctxSubmitter) Submit(ctx context.Context, _, _ string) (intake.Ack, error) {
	c.err = ctx.Err()
	return intake.Ack{Success: true, Message: intake.MsgEmailSent}, nil
}

func TestSubmitIgnoresClientDisconnect(t *testing.T) {
	sub := &ctxSubmitter{}
	h := NewHandler(newFakeRepo(), nil, sub, []string{"*"})

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/form/submit",
		strings.NewReader(`{"email":"a@x.com","phone":"5551234567"}`)).WithContext(reqCtx)
	rr := httptest.NewRecorder()
	h.Submit(rr, req)

	if sub.err != nil {
		t.Fatalf("expected submission context to ignore the client, got %v", sub.err)
	}
}

func TestSubmitStopsWithHandlerLifetime(t *testing.T) {
	sub := &ctxSubmitter{}
	lifetime, cancel := context.WithCancel(context.Background())
	cancel()
	h := NewHandler(newFakeRepo(), nil, sub, []string{"*"}).WithLifetime(lifetime)

	req := httptest.NewRequest(http.MethodPost, "/api/form/submit",
		strings.NewReader(`{"email":"a@x.com","phone":"5551234567"}`))
	rr := httptest.NewRecorder()
	h.Submit(rr, req)

	if !errors.Is(sub.err, context.Canceled) {
		t.Fatalf("expected shutdown to cancel the submission, got %v", sub.err)
	}
}

func TestCreateAgent(t *testing.T) {
	repo := newFakeRepo(&domain.User{ID: 1, Email: "a@x.com", Phone: "5551234567"})
	router, _ := newTestRouter(t, repo, nil, time.Hour)

	tests := []struct {
		name    string
		path    string
		status  int
		message string
	}{
		{"invalid id", "/api/form/create-agent/abc", http.StatusBadRequest, "Invalid user ID."},
		{"unknown user", "/api/form/create-agent/99", http.StatusNotFound, "User not found."},
		{"first trigger", "/api/form/create-agent/1", http.StatusOK, "AI agent started. Data will be ready in 3600 seconds."},
		{"second trigger", "/api/form/create-agent/1", http.StatusOK, "Task is already running."},
	}
	for _, tc := range tests {
		rr := do(t, router, http.MethodPost, tc.path, "")
		if rr.Code != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.name, tc.status, rr.Code)
		}
		if ack := decodeAck(t, rr); ack.Message != tc.message {
			t.Fatalf("%s: expected message %q, got %q", tc.name, tc.message, ack.Message)
		}
	}
}

func TestGetUserInfoPendingThenReady(t *testing.T) {
	repo := newFakeRepo(&domain.User{ID: 1, Email: "a@x.com", Phone: "5551234567"})
	router, sim := newTestRouter(t, repo, nil, 20*time.Millisecond)

	rr := do(t, router, http.MethodGet, "/api/form/get-user-info/1", "")
	var pending map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&pending); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pending["status"] != float64(0) || pending["message"] != msgStillPending {
		t.Fatalf("unexpected pending payload: %v", pending)
	}
	if data, ok := pending["data"].(map[string]interface{}); !ok || len(data) != 0 {
		t.Fatalf("expected empty data object, got %v", pending["data"])
	}

	if _, err := sim.Trigger(1); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	select {
	case <-sim.Done(1):
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for agent")
	}

	rr = do(t, router, http.MethodGet, "/api/form/get-user-info/1", "")
	var ready struct {
		Status int          `json:"status"`
		Data   agent.Record `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&ready); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ready.Status != 1 || ready.Data != agent.MockRecord() {
		t.Fatalf("unexpected ready payload: %+v", ready)
	}
}

func TestGetUserInfoErrors(t *testing.T) {
	router, _ := newTestRouter(t, newFakeRepo(), nil, time.Hour)

	if rr := do(t, router, http.MethodGet, "/api/form/get-user-info/x", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if rr := do(t, router, http.MethodGet, "/api/form/get-user-info/5", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}

	failing := newFakeRepo()
	failing.err = errors.New("db down")
	router, _ = newTestRouter(t, failing, nil, time.Hour)
	if rr := do(t, router, http.MethodGet, "/api/form/get-user-info/5", ""); rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}
