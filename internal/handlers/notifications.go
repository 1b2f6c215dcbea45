package handlers

import (
	"net/http"

	"camp-companion/internal/notifications"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	notifications *notifications.Service
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications *notifications.Service) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GetNotifications handles GET /api/v1/notifications
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": h.notifications.Notifications(),
		"unread":        h.notifications.UnreadCount(),
	})
}

// RefreshNotifications handles POST /api/v1/notifications/refresh
func (h *NotificationHandler) RefreshNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.Refresh(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to refresh notifications")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": list,
	})
}

// MarkRead handles POST /api/v1/notifications/{notification_id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	notificationID := chi.URLParam(r, "notification_id")
	if err := h.notifications.MarkRead(r.Context(), notificationID); err != nil {
		log.Error().Err(err).Str("notification_id", notificationID).Msg("Failed to mark notification read")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}
