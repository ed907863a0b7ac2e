package middleware

import (
	"log"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
)

// LoggerMiddleware logs one line per request. httpsnoop keeps the optional
// interfaces of the writer intact, so WebSocket upgrades still hijack.
func LoggerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			room := mux.Vars(r)["key"]
			if room == "" {
				room = "-"
			}

			log.Printf("[%s] %s %s - Status: %d - Bytes: %d - Duration: %v - Room: %s",
				r.Method,
				r.URL.Path,
				r.RemoteAddr,
				m.Code,
				m.Written,
				m.Duration,
				room,
			)
		})
	}
}
