package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/contactform/internal/domain"
	"github.com/ashureev/contactform/internal/intake"
	"github.com/go-chi/chi/v5"
)

const (
	msgInvalidUserID = "Invalid user ID."
	msgUserNotFound  = "User not found."
	msgServerError   = "Server error."
	msgStillPending  = "Data is still being generated. Please try again later."
)

type submitRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PeekResponse is the get-user-info payload.
type PeekResponse struct {
	Status  int         `json:"status"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

// RegisterRoutes registers the form routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/form", func(r chi.Router) {
		r.Post("/submit", h.Submit)
		r.Post("/create-agent/{id}", h.CreateAgent)
		r.Get("/get-user-info/{id}", h.GetUserInfo)
		r.Get("/user/{id}", h.UserView)
		r.Get("/agent/{id}/ws", h.StreamAgent)
	})
}

// Submit accepts {email, phone} and runs the submission workflow.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Result(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	// A submission runs to completion even if the client disconnects.
	ctx, cancel := h.detach(r)
	defer cancel()

	ack, err := h.submitter.Submit(ctx, req.Email, req.Phone)
	switch {
	case err == nil:
		JSON(w, http.StatusOK, ack)
	case errors.Is(err, domain.ErrValidation):
		JSON(w, http.StatusBadRequest, ack)
	default:
		slog.Error("Submission failed", "error", err)
		Result(w, http.StatusInternalServerError, false, intake.MsgServerError)
	}
}

// CreateAgent starts the agent job for a user.
func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	res, err := h.runner.Trigger(userID)
	if err != nil {
		slog.Error("Failed to trigger agent", "error", err, "user_id", userID)
		Result(w, http.StatusInternalServerError, false, msgServerError)
		return
	}
	Result(w, http.StatusOK, true, res.Message)
}

// GetUserInfo reports whether the agent record for a user is ready.
func (h *Handler) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, h.peek(userID))
}

func (h *Handler) peek(userID int64) PeekResponse {
	status := h.runner.Peek(userID)
	if !status.Ready {
		return PeekResponse{Status: status.Code(), Data: map[string]string{}, Message: msgStillPending}
	}
	return PeekResponse{Status: status.Code(), Data: status.Data}
}

// requireUser parses the {id} URL parameter and checks the user exists,
// writing the error response itself when it returns false.
func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := parseUserID(r)
	if err != nil {
		Result(w, http.StatusBadRequest, false, msgInvalidUserID)
		return 0, false
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to fetch user", "error", err, "user_id", userID)
		Result(w, http.StatusInternalServerError, false, msgServerError)
		return 0, false
	}
	if user == nil {
		Result(w, http.StatusNotFound, false, msgUserNotFound)
		return 0, false
	}
	return userID, true
}

func parseUserID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
