package handler

import (
	"net/http"

	"pad-sync-server/internal/config"
	"pad-sync-server/internal/middleware"
	"pad-sync-server/internal/service"
	"pad-sync-server/internal/websocket"

	"github.com/gorilla/mux"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Rooms   *service.RoomService
	Cleanup *service.CleanupService
	Hub     *websocket.Manager
}

func NewRouter(cfg *config.Config, deps Dependencies) *mux.Router {
	roomHandler := NewRoomHandler(deps.Rooms)
	itemHandler := NewItemHandler(deps.Rooms)
	adminHandler := NewAdminHandler(deps.Rooms, deps.Cleanup)
	wsHandler := NewWebSocketHandler(deps.Hub, deps.Rooms,
		cfg.WebSocket.ReadBufferSize,
		cfg.WebSocket.WriteBufferSize,
	)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/rooms", roomHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/rooms/{key}", roomHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/rooms/{key}", roomHandler.Update).Methods("PUT", "OPTIONS")
	api.HandleFunc("/rooms/{key}", roomHandler.Delete).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/rooms/{key}/clear", roomHandler.Clear).Methods("POST", "OPTIONS")

	api.HandleFunc("/rooms/{key}/items", itemHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/rooms/{key}/items", itemHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/rooms/{key}/items/batch", itemHandler.CreateBatch).Methods("POST", "OPTIONS")
	api.HandleFunc("/rooms/{key}/items/{itemId}", itemHandler.Update).Methods("PUT", "OPTIONS")
	api.HandleFunc("/rooms/{key}/items/{itemId}", itemHandler.Delete).Methods("DELETE", "OPTIONS")

	api.HandleFunc("/stats", adminHandler.Stats).Methods("GET", "OPTIONS")

	admin := api.PathPrefix("").Subrouter()
	admin.Use(middleware.AdminMiddleware(cfg.Admin.Secret))
	admin.HandleFunc("/cleanup", adminHandler.Cleanup).Methods("POST", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection).Methods("GET")

	r.HandleFunc("/health", Health).Methods("GET")
	r.HandleFunc("/", Root).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(notFound)

	return r
}
