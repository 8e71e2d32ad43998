package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// StreamAgent upgrades to a WebSocket and pushes the get-user-info payload:
// once on connect and once more when the job finishes. The server closes the
// connection after the ready payload, right away when no job is pending, or
// when the stream timeout elapses.
func (h *Handler) StreamAgent(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		_ = ws.CloseNow()
	}()

	// Clients never send; CloseRead handles control frames and cancels on disconnect.
	ctx := ws.CloseRead(r.Context())
	ctx, cancel := context.WithTimeout(ctx, h.streamTimeout)
	defer cancel()

	current := h.peek(userID)
	if err := wsjson.Write(ctx, ws, current); err != nil {
		slog.Debug("Failed to write agent status", "error", err, "user_id", userID)
		return
	}
	if current.Status == 1 {
		_ = ws.Close(websocket.StatusNormalClosure, "agent finished")
		return
	}

	done := h.runner.Done(userID)
	if done == nil {
		_ = ws.Close(websocket.StatusNormalClosure, "no agent job")
		return
	}

	select {
	case <-ctx.Done():
		_ = ws.Close(websocket.StatusNormalClosure, "stream timeout")
		return
	case <-done:
	}

	if err := wsjson.Write(ctx, ws, h.peek(userID)); err != nil {
		slog.Debug("Failed to write agent status", "error", err, "user_id", userID)
		return
	}
	_ = ws.Close(websocket.StatusNormalClosure, "agent finished")
}
