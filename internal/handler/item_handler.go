package handler

import (
	"net/http"

	"pad-sync-server/internal/domain"
	"pad-sync-server/internal/service"
	"pad-sync-server/pkg/response"

	"github.com/gorilla/mux"
)

type ItemHandler struct {
	service *service.RoomService
}

func NewItemHandler(service *service.RoomService) *ItemHandler {
	return &ItemHandler{service: service}
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		writeError(w, err, "Failed to list items")
		return
	}

	response.Success(w, items)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, "Failed to add item")
		return
	}

	item, err := h.service.AddItem(r.Context(), mux.Vars(r)["key"], &req)
	if err != nil {
		writeError(w, err, "Failed to add item")
		return
	}

	response.Created(w, item)
}

// CreateBatch stores several items in one round trip. The response lists
// the created items in request order.
func (h *ItemHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.BatchCreateItemsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, "Failed to add items")
		return
	}

	items, err := h.service.AddItemsBatch(r.Context(), mux.Vars(r)["key"], req.Items)
	if err != nil {
		writeError(w, err, "Failed to add items")
		return
	}

	response.Created(w, &domain.BatchCreateItemsResponse{Items: items, Count: len(items)})
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req domain.UpdateItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, "Failed to update item")
		return
	}

	item, err := h.service.UpdateItem(r.Context(), vars["key"], vars["itemId"], &req)
	if err != nil {
		writeError(w, err, "Failed to update item")
		return
	}

	response.Success(w, item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.service.RemoveItem(r.Context(), vars["key"], vars["itemId"]); err != nil {
		writeError(w, err, "Failed to delete item")
		return
	}

	response.Message(w, "Item deleted", nil)
}
