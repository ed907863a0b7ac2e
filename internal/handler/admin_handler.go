package handler

import (
	"fmt"
	"log"
	"net/http"

	"pad-sync-server/internal/domain"
	"pad-sync-server/internal/middleware"
	"pad-sync-server/internal/service"
	"pad-sync-server/pkg/response"
)

type AdminHandler struct {
	rooms   *service.RoomService
	cleanup *service.CleanupService
}

func NewAdminHandler(rooms *service.RoomService, cleanup *service.CleanupService) *AdminHandler {
	return &AdminHandler{rooms: rooms, cleanup: cleanup}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.rooms.GetStats(r.Context())
	if err != nil {
		writeError(w, err, "Failed to get stats")
		return
	}

	response.Success(w, stats)
}

// Cleanup runs one expired-room pass on demand.
func (h *AdminHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	log.Printf("[Cleanup] manual run requested by %s", middleware.GetSubject(r))

	cleaned, err := h.cleanup.RunOnce(r.Context())
	if err != nil {
		writeError(w, err, "Failed to clean up rooms")
		return
	}

	response.Success(w, &domain.CleanupResponse{
		Message:      fmt.Sprintf("Cleaned up %d expired rooms", cleaned),
		CleanedCount: cleaned,
	})
}
