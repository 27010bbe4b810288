package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/simpleidp/internal/app"
	"github.com/dropDatabas3/simpleidp/internal/authenticate"
	"github.com/dropDatabas3/simpleidp/internal/grant"
	httpx "github.com/dropDatabas3/simpleidp/internal/http"
	"github.com/dropDatabas3/simpleidp/internal/metrics"
	"github.com/dropDatabas3/simpleidp/internal/observability/logger"
	"github.com/dropDatabas3/simpleidp/internal/rate"
)

// NewOAuthTokenHandler atiende POST /oauth2/token: autentica al client con la
// instruction del request y despacha el grant_type al servicio de grants.
func NewOAuthTokenHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "solo POST", 1000)
			return
		}

		// OAuth2: application/x-www-form-urlencoded
		r.Body = http.MaxBytesReader(w, r.Body, 64<<10) // 64KB
		if err := r.ParseForm(); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "the request cannot be parsed", 2201)
			return
		}

		ctx := r.Context()
		start := time.Now()
		in := authenticate.InstructionFromRequest(r)

		// Rate limit por client (anónimo si todavía no se identificó).
		if c.Limiter != nil {
			key := rate.Key(rateClientID(in), "token")
			if res, err := c.Limiter.Allow(ctx, key); err == nil && !res.Allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(res.RetryAfter.Seconds()+0.5), 10))
				httpx.WriteError(w, http.StatusTooManyRequests, "slow_down", "too many requests", 1429)
				return
			}
		}

		// 400 y no 401: el endpoint responde siempre con el objeto de error
		// JSON plano, sin challenge WWW-Authenticate.
		auth := c.Auth.Authenticate(ctx, in)
		if !auth.OK() {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_client", auth.Message, 2301)
			return
		}

		req := &grant.TokenRequest{
			GrantType:        strings.TrimSpace(r.PostForm.Get("grant_type")),
			Scope:            strings.TrimSpace(r.PostForm.Get("scope")),
			Username:         strings.TrimSpace(r.PostForm.Get("username")),
			Password:         r.PostForm.Get("password"),
			ConfirmationCode: strings.TrimSpace(r.PostForm.Get("confirmation_code")),
			Code:             strings.TrimSpace(r.PostForm.Get("code")),
			RedirectURI:      strings.TrimSpace(r.PostForm.Get("redirect_uri")),
			CodeVerifier:     strings.TrimSpace(r.PostForm.Get("code_verifier")),
			RefreshToken:     strings.TrimSpace(r.PostForm.Get("refresh_token")),
		}

		tok, gerr := c.Grants.Handle(ctx, req, auth.Client)
		metrics.TokenEndpointLatency.Observe(time.Since(start).Seconds())
		if gerr != nil {
			logger.FromWithFields(ctx,
				zap.String("grant_type", req.GrantType),
				zap.String("client_id", auth.Client.ID),
				zap.String("error", gerr.Code),
			).Info("grant rejected")
			httpx.WriteError(w, gerr.Status, gerr.Code, gerr.Description, gerr.Num)
			return
		}

		httpx.NoStore(w)
		httpx.WriteJSON(w, http.StatusOK, tok)
	}
}

// rateClientID saca el mejor identificador disponible antes de autenticar.
func rateClientID(in *authenticate.Instruction) string {
	if in.ClientIDFromHeader != "" {
		return in.ClientIDFromHeader
	}
	return in.ClientIDFromBody
}
