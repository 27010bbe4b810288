package authorize

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/simpleidp/internal/grant"
	jwtx "github.com/dropDatabas3/simpleidp/internal/jwt"
	tokens "github.com/dropDatabas3/simpleidp/internal/security/token"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
	"github.com/dropDatabas3/simpleidp/internal/validation"
)

// Outcome de una autorización que no terminó en error duro.
type Outcome int

const (
	// OutcomeRedirect: redirigir a Location (code/tokens o error redirigible).
	OutcomeRedirect Outcome = iota
	// OutcomeLoginRequired: no hay resource owner autenticado.
	OutcomeLoginRequired
	// OutcomeConsentRequired: falta un consent que cubra los scopes pedidos.
	OutcomeConsentRequired
)

type Result struct {
	Outcome  Outcome
	Location string
}

// Machine valida el authorization request y produce el terminal según la
// combinación de response types. Estados:
// Received -> ClientValidated -> ScopesValidated -> ConsentChecked ->
// {CodeIssued | TokensIssued | RedirectedToLogin | RedirectedToConsent}.
type Machine struct {
	Clients  core.ClientRepository
	Consents core.ConsentRepository
	Codes    core.CodeStore
	Tokens   core.TokenStore
	Issuer   *jwtx.Issuer
	CodeTTL  time.Duration

	now func() time.Time
}

func NewMachine(clients core.ClientRepository, consents core.ConsentRepository, codes core.CodeStore, ts core.TokenStore, issuer *jwtx.Issuer) *Machine {
	return &Machine{
		Clients:  clients,
		Consents: consents,
		Codes:    codes,
		Tokens:   ts,
		Issuer:   issuer,
		CodeTTL:  5 * time.Minute,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var validResponseTypes = map[string]bool{"code": true, "token": true, "id_token": true}

// Authorize corre la máquina completa. subject es el resource owner
// autenticado ("" si no hay sesión). Los errores previos a validar el
// redirect_uri vuelven como *grant.Error (respuesta directa); a partir de ahí
// son redirects con error en el query/fragment.
func (m *Machine) Authorize(ctx context.Context, req *Request, subject string) (*Result, *grant.Error) {
	// ── Received -> ClientValidated ──
	if req.ResponseType == "" {
		return nil, grant.ErrMissingParameter("response_type", 2101)
	}
	if req.ClientID == "" {
		return nil, grant.ErrMissingParameter("client_id", 2102)
	}
	if req.RedirectURI == "" {
		return nil, grant.ErrMissingParameter("redirect_uri", 2103)
	}
	rts := req.ResponseTypes()
	for _, rt := range rts {
		if !validResponseTypes[rt] {
			return nil, grant.ErrInvalidRequest("at least one response_type parameter is not supported", 2104)
		}
	}

	client, err := m.Clients.GetClientByID(ctx, req.ClientID)
	if err != nil || client == nil {
		return nil, grant.ErrInvalidRequest(
			fmt.Sprintf("the client id parameter %s doesn't exist or is not valid", req.ClientID), 2105)
	}
	if !client.HasRedirectURI(req.RedirectURI) {
		// match exacto; sin redirect validado no se redirige nada
		return nil, grant.ErrInvalidRequest(
			fmt.Sprintf("the redirect url %s doesn't exist or is not valid", req.RedirectURI), 2106)
	}
	for _, rt := range rts {
		if !client.SupportsResponseType(core.ResponseType(rt)) {
			return nil, grant.ErrInvalidClient(
				fmt.Sprintf("the client '%s' doesn't support the response type: '%s'", client.ID, rt), 2107)
		}
	}

	// ── ClientValidated -> ScopesValidated ──
	scopes := validation.SplitScopes(req.Scope)
	if len(scopes) == 0 {
		return m.redirectError(req, "invalid_request", "the parameter scope is missing"), nil
	}
	for _, sc := range scopes {
		if !validation.ValidScopeName(sc) || !client.AllowsScope(sc) {
			return m.redirectError(req, "invalid_scope",
				fmt.Sprintf("the scopes %s are not allowed or invalid", sc)), nil
		}
	}
	openid := contains(scopes, "openid")
	if openid && !req.HasResponseType("code") && !req.HasResponseType("id_token") {
		return m.redirectError(req, "invalid_request", "the authorization flow is not supported"), nil
	}

	// nonce es obligatorio cuando el id_token sale por el front channel
	if req.HasResponseType("id_token") && req.Nonce == "" {
		return m.redirectError(req, "invalid_request", "the parameter nonce is missing"), nil
	}

	// ── resource owner ──
	if subject == "" {
		if req.Prompt == "none" {
			return m.redirectError(req, "login_required", "the user needs to be authenticated"), nil
		}
		return &Result{Outcome: OutcomeLoginRequired}, nil
	}

	// ── ScopesValidated -> ConsentChecked ──
	if req.Prompt != "consent" {
		consented, err := m.hasConsent(ctx, subject, client.ID, scopes)
		if err != nil {
			return nil, grant.ErrServerError("the consents cannot be fetched", 2108)
		}
		if !consented {
			if req.Prompt == "none" {
				// prompt=none sin consent previo nunca sigue en silencio
				return m.redirectError(req, "invalid_request", "the user needs to give his consent"), nil
			}
			return &Result{Outcome: OutcomeConsentRequired}, nil
		}
	} else {
		return &Result{Outcome: OutcomeConsentRequired}, nil
	}

	// ── terminal: CodeIssued / TokensIssued ──
	return m.buildResponse(ctx, req, client, subject, scopes)
}

func (m *Machine) hasConsent(ctx context.Context, subject, clientID string, scopes []string) (bool, error) {
	consents, err := m.Consents.GetConsents(ctx, subject)
	if err != nil {
		return false, err
	}
	for i := range consents {
		c := &consents[i]
		if c.ClientID == clientID && c.Covers(scopes) {
			return true, nil
		}
	}
	return false, nil
}

// issueCode genera y persiste un authorization code ligado a client,
// redirect, scopes, subject y nonce.
func (m *Machine) issueCode(ctx context.Context, req *Request, client *core.Client, subject string) (string, error) {
	raw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", err
	}
	now := m.now()
	code := &core.AuthorizationCode{
		CodeHash:        tokens.SHA256Base64URL(raw),
		ClientID:        client.ID,
		RedirectURI:     req.RedirectURI,
		Scope:           req.Scope,
		Subject:         subject,
		Nonce:           req.Nonce,
		CodeChallenge:   req.CodeChallenge,
		ChallengeMethod: req.CodeChallengeMethod,
		CreatedAt:       now,
		ExpiresAt:       now.Add(m.CodeTTL),
	}
	if err := m.Codes.AddCode(ctx, code); err != nil {
		return "", err
	}
	return raw, nil
}

// issueAccess emite y persiste un access token front-channel (implicit/hybrid).
func (m *Machine) issueAccess(ctx context.Context, client *core.Client, subject, scope string) (string, int64, error) {
	access, exp, err := m.Issuer.IssueAccessToken(subject, client.ID, scope, []string{"pwd"}, nil)
	if err != nil {
		return "", 0, err
	}
	record := &core.GrantedToken{
		ID:              uuid.NewString(),
		ClientID:        client.ID,
		Subject:         subject,
		AccessTokenHash: tokens.SHA256Base64URL(access),
		TokenType:       "Bearer",
		Scope:           scope,
		Issuer:          m.Issuer.Name,
		IssuedAt:        m.now(),
		AccessExpiresAt: exp,
	}
	if err := m.Tokens.Add(ctx, record); err != nil {
		return "", 0, err
	}
	return access, int64(time.Until(exp).Seconds()), nil
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
