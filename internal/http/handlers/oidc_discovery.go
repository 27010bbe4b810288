package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/simpleidp/internal/app"
	httpx "github.com/dropDatabas3/simpleidp/internal/http"
)

type oidcMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	ResponseModesSupported            []string `json:"response_modes_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
}

// NewOIDCDiscoveryHandler publica el documento de configuración OIDC con URLs
// absolutas armadas desde el issuer.
func NewOIDCDiscoveryHandler(c *app.Container) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "solo GET/HEAD", 1004)
			return
		}

		iss := strings.TrimRight(c.Issuer.Name, "/")
		meta := oidcMetadata{
			Issuer:                iss,
			AuthorizationEndpoint: iss + "/oauth2/authorize",
			TokenEndpoint:         iss + "/oauth2/token",
			JWKSURI:               iss + "/.well-known/jwks.json",
			RevocationEndpoint:    iss + "/oauth2/revoke",
			IntrospectionEndpoint: iss + "/oauth2/introspect",

			ResponseTypesSupported: []string{
				"code", "token", "id_token",
				"code id_token", "code token", "id_token token",
				"code id_token token",
			},
			ResponseModesSupported: []string{"query", "fragment"},
			GrantTypesSupported: []string{
				"password", "client_credentials", "authorization_code", "refresh_token",
			},
			SubjectTypesSupported:            []string{"public"},
			IDTokenSigningAlgValuesSupported: []string{c.Issuer.Alg},
			TokenEndpointAuthMethodsSupported: []string{
				"none", "client_secret_basic", "client_secret_post",
				"client_secret_jwt", "private_key_jwt", "tls_client_auth",
			},
			CodeChallengeMethodsSupported: []string{"S256"},
			ScopesSupported:               []string{"openid", "profile", "email", "offline_access"},
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=600, must-revalidate")
		w.Header().Set("Expires", time.Now().Add(10*time.Minute).UTC().Format(http.TimeFormat))
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, meta)
	})
}
