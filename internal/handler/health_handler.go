package handler

import (
	"net/http"

	"pad-sync-server/pkg/response"
)

const serviceName = "pad-sync-server"

func Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

func Root(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]interface{}{
		"message": "Pad Sync Server API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"/api/v1/rooms":                   "POST",
			"/api/v1/rooms/{key}":             "GET, PUT, DELETE",
			"/api/v1/rooms/{key}/clear":       "POST",
			"/api/v1/rooms/{key}/items":       "GET, POST",
			"/api/v1/rooms/{key}/items/batch": "POST",
			"/api/v1/rooms/{key}/items/{id}":  "PUT, DELETE",
			"/api/v1/stats":                   "GET",
			"/api/v1/cleanup":                 "POST (admin)",
			"/ws?room={key}":                  "WebSocket",
		},
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	response.NotFound(w, "Route not found")
}
