package grant

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	jwtx "github.com/dropDatabas3/simpleidp/internal/jwt"
	"github.com/dropDatabas3/simpleidp/internal/metrics"
	tokens "github.com/dropDatabas3/simpleidp/internal/security/token"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
	"github.com/dropDatabas3/simpleidp/internal/validation"
)

// Error es una falla de protocolo del token endpoint: código OAuth2 estable,
// descripción legible y código numérico interno. Nunca se lanza como panic.
type Error struct {
	Code        string
	Description string
	Status      int
	Num         int
}

func (e *Error) Error() string { return e.Code + ": " + e.Description }

func invalidRequest(desc string, num int) *Error {
	return &Error{Code: "invalid_request", Description: desc, Status: http.StatusBadRequest, Num: num}
}
func invalidClient(desc string, num int) *Error {
	return &Error{Code: "invalid_client", Description: desc, Status: http.StatusBadRequest, Num: num}
}
func invalidGrant(desc string, num int) *Error {
	return &Error{Code: "invalid_grant", Description: desc, Status: http.StatusBadRequest, Num: num}
}
func invalidScope(desc string, num int) *Error {
	return &Error{Code: "invalid_scope", Description: desc, Status: http.StatusBadRequest, Num: num}
}
func serverError(desc string, num int) *Error {
	return &Error{Code: "server_error", Description: desc, Status: http.StatusInternalServerError, Num: num}
}

func missingParameter(name string, num int) *Error {
	return invalidRequest(fmt.Sprintf("the parameter %s is missing", name), num)
}

// Constructores exportados para otros componentes del core (authorize, http)
// que comparten la misma taxonomía de errores.

func ErrInvalidRequest(desc string, num int) *Error { return invalidRequest(desc, num) }
func ErrInvalidClient(desc string, num int) *Error  { return invalidClient(desc, num) }
func ErrInvalidGrant(desc string, num int) *Error   { return invalidGrant(desc, num) }
func ErrServerError(desc string, num int) *Error    { return serverError(desc, num) }
func ErrMissingParameter(name string, num int) *Error {
	return missingParameter(name, num)
}

// TokenRequest es el form del token endpoint ya parseado. El client llega
// autenticado por separado (orquestador), acá solo viajan los parámetros.
type TokenRequest struct {
	GrantType        string
	Scope            string
	Username         string
	Password         string
	ConfirmationCode string
	Code             string
	RedirectURI      string
	CodeVerifier     string
	RefreshToken     string
}

// Token es la respuesta wire de un grant exitoso.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// Service agrupa los handlers de grant. Todos comparten la emisión de tokens
// y el registro en el token store.
type Service struct {
	Issuer        *jwtx.Issuer
	Tokens        core.TokenStore
	Codes         core.CodeStore
	Owners        core.ResourceOwnerRepository
	Confirmations core.ConfirmationCodeStore
	RefreshTTL    time.Duration

	// RotateRefresh: refresh tokens de un solo uso (default on).
	RotateRefresh bool

	now func() time.Time
}

func NewService(issuer *jwtx.Issuer, ts core.TokenStore, cs core.CodeStore, owners core.ResourceOwnerRepository, confirmations core.ConfirmationCodeStore) *Service {
	return &Service{
		Issuer:        issuer,
		Tokens:        ts,
		Codes:         cs,
		Owners:        owners,
		Confirmations: confirmations,
		RefreshTTL:    30 * 24 * time.Hour,
		RotateRefresh: true,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Handle despacha al handler del grant type. client ya viene autenticado.
func (s *Service) Handle(ctx context.Context, req *TokenRequest, client *core.Client) (*Token, *Error) {
	if req == nil || client == nil {
		panic("grant: nil request or client")
	}
	var (
		tok  *Token
		gerr *Error
	)
	switch req.GrantType {
	case string(core.GrantPassword):
		tok, gerr = s.Password(ctx, req, client)
	case string(core.GrantClientCredentials):
		tok, gerr = s.ClientCredentials(ctx, req, client)
	case string(core.GrantAuthorizationCode):
		tok, gerr = s.AuthorizationCode(ctx, req, client)
	case string(core.GrantRefreshToken):
		tok, gerr = s.RefreshToken(ctx, req, client)
	default:
		gerr = &Error{Code: "unsupported_grant_type", Description: "the grant type is not supported", Status: http.StatusBadRequest, Num: 2302}
	}
	if gerr != nil {
		metrics.GrantErrorsTotal.WithLabelValues(req.GrantType, gerr.Code).Inc()
		return nil, gerr
	}
	metrics.TokensIssuedTotal.WithLabelValues(req.GrantType).Inc()
	return tok, nil
}

// validateScopes chequea que cada scope pedido esté permitido para el client.
// Devuelve los scopes normalizados o el *Error correspondiente.
func validateScopes(scope string, client *core.Client) ([]string, *Error) {
	scopes := validation.SplitScopes(scope)
	if dup := validation.Duplicates(scopes); len(dup) > 0 {
		return nil, invalidRequest(
			fmt.Sprintf("duplicate scopes %s have been passed in parameter", strings.Join(dup, " ")), 2310)
	}
	var notAllowed []string
	for _, sc := range scopes {
		if !validation.ValidScopeName(sc) || !client.AllowsScope(sc) {
			notAllowed = append(notAllowed, sc)
		}
	}
	if len(notAllowed) > 0 {
		return nil, invalidScope(
			fmt.Sprintf("the scopes %s are not allowed or invalid", strings.Join(notAllowed, " ")), 2311)
	}
	return scopes, nil
}

func hasScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}

// issueOptions controla qué artefactos mint a issue().
type issueOptions struct {
	subject     string
	scope       string
	amr         []string
	withRefresh bool
	withIDToken bool
	nonce       string
	rotatedFrom *string
	extraClaims map[string]any
}

// issue emite access (+refresh +id_token), persiste el registro hasheado y
// arma la respuesta wire. El at_hash del id_token se calcula sobre el access
// recién emitido.
func (s *Service) issue(ctx context.Context, client *core.Client, opt issueOptions) (*Token, *Error) {
	access, exp, err := s.Issuer.IssueAccessToken(opt.subject, client.ID, opt.scope, opt.amr, opt.extraClaims)
	if err != nil {
		return nil, serverError("the access token cannot be issued", 2320)
	}

	record := &core.GrantedToken{
		ID:              uuid.NewString(),
		ClientID:        client.ID,
		Subject:         opt.subject,
		AccessTokenHash: tokens.SHA256Base64URL(access),
		TokenType:       "Bearer",
		Scope:           opt.scope,
		Issuer:          s.Issuer.Name,
		IssuedAt:        s.now(),
		AccessExpiresAt: exp,
		RotatedFrom:     opt.rotatedFrom,
	}

	resp := &Token{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(exp).Seconds()),
		Scope:       opt.scope,
	}

	if opt.withRefresh {
		rawRT, err := tokens.GenerateOpaqueToken(32)
		if err != nil {
			return nil, serverError("the refresh token cannot be generated", 2321)
		}
		record.RefreshTokenHash = tokens.SHA256Base64URL(rawRT)
		record.RefreshExpiresAt = s.now().Add(s.RefreshTTL)
		resp.RefreshToken = rawRT
	}

	if opt.withIDToken {
		atHash := jwtx.AccessTokenHash(access, s.Issuer.Alg)
		idToken, _, err := s.Issuer.IssueIDToken(opt.subject, client.ID, opt.nonce, atHash, "", nil)
		if err != nil {
			return nil, serverError("the id token cannot be signed", 2322)
		}
		resp.IDToken = idToken
	}

	if err := s.Tokens.Add(ctx, record); err != nil {
		return nil, serverError("the granted token cannot be persisted", 2323)
	}
	return resp, nil
}
