package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/nisHanRam/Placify-Backend/internal/apperr"
	"github.com/nisHanRam/Placify-Backend/internal/ws"
)

var errUserIDRequired = apperr.Validation("user_id query parameter required")

func streamUserID(req *http.Request) (string, error) {
	userID := strings.TrimSpace(req.URL.Query().Get("user_id"))
	if userID == "" {
		return "", errUserIDRequired
	}
	return userID, nil
}

func (r *Router) handlePlacesWS(w http.ResponseWriter, req *http.Request) error {
	userID, err := streamUserID(req)
	if err != nil {
		return err
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		r.logger.Warn("websocket upgrade failed", "error", err)
		return nil
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(userID, client)
	go func() {
		defer func() {
			r.hub.Unregister(userID, client)
			client.Close()
		}()
		client.Drain()
	}()
	return nil
}

func (r *Router) handlePlacesSSE(w http.ResponseWriter, req *http.Request) error {
	userID, err := streamUserID(req)
	if err != nil {
		return err
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		return apperr.Internal("Streaming unsupported.", nil)
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	r.hub.Register(userID, client)
	defer r.hub.Unregister(userID, client)
	// Closed before Unregister so no event is written once we return.
	defer client.Close()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return nil
		case <-client.Done():
			return nil
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return nil
			}
		}
	}
}
