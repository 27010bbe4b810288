package handlers

import (
	"context"
	"net/http"
	"time"

	httpx "github.com/dropDatabas3/simpleidp/internal/http"
)

// NewReadyzHandler chequea las dependencias vivas (ping opcional por backend).
func NewReadyzHandler(pings ...func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, ping := range pings {
			if ping == nil {
				continue
			}
			if err := ping(ctx); err != nil {
				httpx.WriteError(w, http.StatusServiceUnavailable, "not_ready", err.Error(), 1503)
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
