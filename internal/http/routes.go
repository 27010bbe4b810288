package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Endpoints agrupa los handlers ya construidos; el cableado vive en cmd.
type Endpoints struct {
	JWKS       stdhttp.Handler
	Discovery  stdhttp.Handler
	Authorize  stdhttp.Handler
	Token      stdhttp.Handler
	Introspect stdhttp.Handler
	Revoke     stdhttp.Handler
	Readyz     stdhttp.Handler
}

// NewRouter arma el router chi con la cadena estándar de middlewares.
// Orden: Recover -> RequestID -> SecurityHeaders -> Logging.
func NewRouter(ep Endpoints) chi.Router {
	r := chi.NewRouter()
	r.Use(WithRecover)
	r.Use(WithRequestID)
	r.Use(WithSecurityHeaders)
	r.Use(WithLogging)

	r.Get("/healthz", func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(stdhttp.MethodGet, "/readyz", ep.Readyz)

	r.Method(stdhttp.MethodGet, "/.well-known/jwks.json", ep.JWKS)
	r.Handle("/.well-known/openid-configuration", ep.Discovery)

	r.Handle("/oauth2/authorize", ep.Authorize)
	r.Handle("/oauth2/token", ep.Token)
	r.Handle("/oauth2/introspect", ep.Introspect)
	r.Handle("/oauth2/revoke", ep.Revoke)

	r.Method(stdhttp.MethodGet, "/metrics", promhttp.Handler())

	return r
}
