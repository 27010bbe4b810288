package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/simpleidp/internal/app"
	"github.com/dropDatabas3/simpleidp/internal/authenticate"
	httpx "github.com/dropDatabas3/simpleidp/internal/http"
	tokens "github.com/dropDatabas3/simpleidp/internal/security/token"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

type introspection struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Sub       string `json:"sub,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Iss       string `json:"iss,omitempty"`
}

// NewOAuthIntrospectHandler atiende POST /oauth2/introspect (RFC 7662).
// Requiere client autenticado. Tokens ajenos o desconocidos responden
// active:false sin distinguir el motivo.
func NewOAuthIntrospectHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "solo POST", 1002)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
		if err := r.ParseForm(); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "the request cannot be parsed", 2401)
			return
		}

		ctx := r.Context()
		auth := c.Auth.Authenticate(ctx, authenticate.InstructionFromRequest(r))
		if !auth.OK() {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_client", auth.Message, 2402)
			return
		}

		raw := strings.TrimSpace(r.PostForm.Get("token"))
		if raw == "" {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "the parameter token is missing", 2403)
			return
		}
		hint := strings.TrimSpace(r.PostForm.Get("token_type_hint"))

		gt, kind, err := lookupToken(ctx, c.Tokens, raw, hint)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "the token cannot be introspected", 2404)
			return
		}

		httpx.NoStore(w)
		now := time.Now().UTC()
		var exp time.Time
		if gt != nil {
			exp = gt.AccessExpiresAt
			if kind == "refresh_token" {
				exp = gt.RefreshExpiresAt
			}
		}
		if gt == nil || gt.Revoked() || gt.ClientID != auth.Client.ID || now.After(exp) {
			httpx.WriteJSON(w, http.StatusOK, introspection{Active: false})
			return
		}

		httpx.WriteJSON(w, http.StatusOK, introspection{
			Active:    true,
			Scope:     gt.Scope,
			ClientID:  gt.ClientID,
			Sub:       gt.Subject,
			TokenType: gt.TokenType,
			Exp:       exp.Unix(),
			Iat:       gt.IssuedAt.Unix(),
			Iss:       gt.Issuer,
		})
	}
}

// lookupToken busca por access y refresh hash, arrancando por el hint.
// Devuelve qué tipo matcheó.
func lookupToken(ctx context.Context, ts core.TokenStore, raw, hint string) (*core.GrantedToken, string, error) {
	hash := tokens.SHA256Base64URL(raw)
	order := []string{"access_token", "refresh_token"}
	if hint == "refresh_token" {
		order = []string{"refresh_token", "access_token"}
	}
	for _, kind := range order {
		var (
			gt  *core.GrantedToken
			err error
		)
		if kind == "access_token" {
			gt, err = ts.GetByAccessTokenHash(ctx, hash)
		} else {
			gt, err = ts.GetByRefreshTokenHash(ctx, hash)
		}
		if err == nil {
			return gt, kind, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return nil, "", err
		}
	}
	return nil, "", core.ErrNotFound
}
