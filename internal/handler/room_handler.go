package handler

import (
	"net/http"

	"pad-sync-server/internal/domain"
	"pad-sync-server/internal/service"
	"pad-sync-server/pkg/response"

	"github.com/gorilla/mux"
)

type RoomHandler struct {
	service *service.RoomService
}

func NewRoomHandler(service *service.RoomService) *RoomHandler {
	return &RoomHandler{service: service}
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRoomRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, "Failed to create room")
		return
	}

	room, err := h.service.CreateRoom(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to create room")
		return
	}

	response.Created(w, room)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.service.GetRoom(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		writeError(w, err, "Failed to get room")
		return
	}

	response.Success(w, room)
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateRoomRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, "Failed to update room")
		return
	}

	room, err := h.service.UpdateRoom(r.Context(), mux.Vars(r)["key"], &req)
	if err != nil {
		writeError(w, err, "Failed to update room")
		return
	}

	response.Success(w, room)
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRoom(r.Context(), mux.Vars(r)["key"]); err != nil {
		writeError(w, err, "Failed to delete room")
		return
	}

	response.Message(w, "Room deleted", nil)
}

// Clear removes every item of the room. Clearing an empty room succeeds.
func (h *RoomHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearRoom(r.Context(), mux.Vars(r)["key"]); err != nil {
		writeError(w, err, "Failed to clear room")
		return
	}

	response.Message(w, "Room cleared", nil)
}
