package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ClientAuthTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idp_client_auth_total",
		Help: "Autenticaciones de client por método y resultado",
	}, []string{"method", "outcome"})

	TokensIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idp_tokens_issued_total",
		Help: "Tokens emitidos por grant type",
	}, []string{"grant_type"})

	GrantErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idp_grant_errors_total",
		Help: "Errores de grant por grant type y código de error",
	}, []string{"grant_type", "error"})

	TokenEndpointLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "idp_token_endpoint_latency_seconds",
		Help:    "Latencia del token endpoint en segundos",
		Buckets: prometheus.DefBuckets,
	})
)

// Register registra las métricas en el registry dado (o el default si es nil).
// Tolera AlreadyRegisteredError para poder llamarse desde tests.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		ClientAuthTotal,
		TokensIssuedTotal,
		GrantErrorsTotal,
		TokenEndpointLatency,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
