package web

import (
	"net/http"

	"github.com/edvart/arena-inhouse/internal/engine"
	"github.com/edvart/arena-inhouse/internal/push"
	"github.com/edvart/arena-inhouse/internal/store"
)

type pushSubscribeRequest struct {
	UserID   string `json:"user_id"`
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (s *Server) handlePushSubscribe(w http.ResponseWriter, r *http.Request) {
	var req pushSubscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, apiError{Error: "invalid_request"})
		return
	}
	if req.Endpoint == "" {
		respondJSON(w, http.StatusBadRequest, apiError{Error: "invalid_request"})
		return
	}
	user, err := s.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if user == nil {
		s.respondError(w, engine.ErrUserNotFound)
		return
	}

	sub := &store.PushSubscription{
		UserID:   user.ID,
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}
	if err := s.store.SavePushSubscription(r.Context(), sub); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handlePushUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, apiError{Error: "invalid_request"})
		return
	}
	if err := s.store.DeletePushSubscription(r.Context(), req.Endpoint); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleVAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	if s.push == nil {
		respondJSON(w, http.StatusServiceUnavailable, apiError{Error: "push_not_configured"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"publicKey": s.push.PublicKey()})
}

// handlePushTest sends a test notification so a user can verify their
// browser subscription end to end.
func (s *Server) handlePushTest(w http.ResponseWriter, r *http.Request) {
	if s.push == nil {
		respondJSON(w, http.StatusServiceUnavailable, apiError{Error: "push_not_configured"})
		return
	}
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, apiError{Error: "invalid_request"})
		return
	}

	payload := push.NotificationPayload{
		Title: "Test notification",
		Body:  "If you see this, push notifications are working!",
		Tag:   "test-notification",
		Data:  map[string]interface{}{"url": "/"},
	}
	if err := s.push.SendToUser(r.Context(), req.UserID, payload); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
