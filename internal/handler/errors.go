package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"pad-sync-server/internal/domain"
	"pad-sync-server/pkg/response"
)

// writeError maps service errors onto status codes. Anything unexpected is
// logged and reported as a 500 carrying fallback.
func writeError(w http.ResponseWriter, err error, fallback string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		response.BadRequest(w, ve.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrRoomExists):
		response.Conflict(w, err.Error())
	default:
		log.Printf("[API] %s: %v", fallback, err)
		response.InternalError(w, fallback)
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &domain.ValidationError{Message: "invalid request payload"}
	}
	return nil
}
