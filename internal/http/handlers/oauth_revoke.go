package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dropDatabas3/simpleidp/internal/app"
	"github.com/dropDatabas3/simpleidp/internal/authenticate"
	httpx "github.com/dropDatabas3/simpleidp/internal/http"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// NewOAuthRevokeHandler atiende POST /oauth2/revoke (RFC 7009). Revocar un
// token desconocido es 200 igual; revocar el token de otro client es
// invalid_token.
func NewOAuthRevokeHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "solo POST", 1003)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
		if err := r.ParseForm(); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "the request cannot be parsed", 2501)
			return
		}

		ctx := r.Context()
		auth := c.Auth.Authenticate(ctx, authenticate.InstructionFromRequest(r))
		if !auth.OK() {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_client", auth.Message, 2502)
			return
		}

		raw := strings.TrimSpace(r.PostForm.Get("token"))
		if raw == "" {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "the parameter token is missing", 2503)
			return
		}
		hint := strings.TrimSpace(r.PostForm.Get("token_type_hint"))

		gt, _, err := lookupToken(ctx, c.Tokens, raw, hint)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				// idempotente: nada que revocar
				w.WriteHeader(http.StatusOK)
				return
			}
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "the token cannot be revoked", 2504)
			return
		}

		if gt.ClientID != auth.Client.ID {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_token",
				fmt.Sprintf("the token has not been issued for the given client id '%s'", auth.Client.ID), 2505)
			return
		}

		if err := c.Tokens.Revoke(ctx, gt.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "the token cannot be revoked", 2506)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
