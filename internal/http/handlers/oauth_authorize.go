package handlers

import (
	"net/http"
	"net/url"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/simpleidp/internal/app"
	"github.com/dropDatabas3/simpleidp/internal/authorize"
	httpx "github.com/dropDatabas3/simpleidp/internal/http"
)

// NewOAuthAuthorizeHandler atiende GET /oauth2/authorize. El resource owner
// se resuelve desde un Bearer token nuestro (si hay); sin sesión la máquina
// decide login_required o redirect a la página de login.
func NewOAuthAuthorizeHandler(c *app.Container, loginURL, consentURL string) http.HandlerFunc {
	if loginURL == "" {
		loginURL = "/login"
	}
	if consentURL == "" {
		consentURL = "/consent"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			w.Header().Set("Allow", "GET, POST")
			httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "solo GET/POST", 1001)
			return
		}

		req := authorize.FromHTTP(r)
		subject := subjectFromBearer(c, r)

		res, gerr := c.Authorize.Authorize(r.Context(), req, subject)
		if gerr != nil {
			// error previo a validar el redirect_uri: nunca redirigimos
			httpx.WriteError(w, gerr.Status, gerr.Code, gerr.Description, gerr.Num)
			return
		}

		switch res.Outcome {
		case authorize.OutcomeLoginRequired:
			http.Redirect(w, r, withReturnTo(loginURL, r.URL.String()), http.StatusFound)
		case authorize.OutcomeConsentRequired:
			http.Redirect(w, r, withReturnTo(consentURL, r.URL.String()), http.StatusFound)
		default:
			httpx.NoStore(w)
			http.Redirect(w, r, res.Location, http.StatusFound)
		}
	}
}

// subjectFromBearer valida un access token emitido por nosotros y devuelve el
// sub. Cualquier fallo cuenta como "sin sesión".
func subjectFromBearer(c *app.Container, r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	if raw == "" {
		return ""
	}
	tok, err := jwtv5.Parse(raw, c.Issuer.Keyfunc(),
		jwtv5.WithValidMethods([]string{c.Issuer.Alg}),
		jwtv5.WithIssuer(c.Issuer.Name))
	if err != nil || !tok.Valid {
		return ""
	}
	sub, _ := tok.Claims.GetSubject()
	return sub
}

func withReturnTo(base, original string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "return_to=" + url.QueryEscape(original)
}
