package grant

import (
	"context"
	"fmt"
	"strings"

	tokens "github.com/dropDatabas3/simpleidp/internal/security/token"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
	"github.com/dropDatabas3/simpleidp/internal/validation"
)

// AuthorizationCode canjea un authorization code por tokens. El code es de
// un solo uso: Consume es atómico en el store, de dos canjes concurrentes
// gana exactamente uno.
func (s *Service) AuthorizationCode(ctx context.Context, req *TokenRequest, client *core.Client) (*Token, *Error) {
	if req.Code == "" {
		return nil, missingParameter("code", 2350)
	}
	if req.RedirectURI == "" {
		return nil, missingParameter("redirect_uri", 2351)
	}

	if !client.SupportsGrant(core.GrantAuthorizationCode) {
		return nil, invalidClient(
			fmt.Sprintf("the client %s doesn't support the grant type %s", client.ID, core.GrantAuthorizationCode), 2352)
	}

	// Consume elimina el code del store; un code ausente, ya consumido o
	// corrupto produce el mismo error.
	code, err := s.Codes.Consume(ctx, tokens.SHA256Base64URL(req.Code))
	if err != nil || code == nil {
		return nil, invalidGrant("the authorization code is not correct", 2353)
	}
	if s.now().After(code.ExpiresAt) {
		return nil, invalidGrant("the authorization code is obsolete", 2354)
	}
	if code.ClientID != client.ID {
		return nil, invalidGrant(
			fmt.Sprintf("the authorization code has not been issued for the given client id %s", client.ID), 2355)
	}
	if code.RedirectURI != req.RedirectURI {
		return nil, invalidGrant("the redirection url is not the same than the one passed in the authorization request", 2356)
	}

	// PKCE: si el code quedó ligado a un challenge, el verifier es obligatorio
	if code.CodeChallenge != "" {
		if req.CodeVerifier == "" {
			return nil, missingParameter("code_verifier", 2357)
		}
		verifierHash := tokens.SHA256Base64URL(req.CodeVerifier)
		if !strings.EqualFold(code.ChallengeMethod, "S256") ||
			!tokens.ConstantTimeEquals(code.CodeChallenge, verifierHash) {
			return nil, invalidGrant("the code verifier is not correct", 2358)
		}
	}

	scopes := validation.SplitScopes(code.Scope)
	return s.issue(ctx, client, issueOptions{
		subject:     code.Subject,
		scope:       code.Scope,
		amr:         []string{"pwd"},
		withRefresh: client.SupportsGrant(core.GrantRefreshToken),
		withIDToken: hasScope(scopes, "openid"),
		nonce:       code.Nonce,
	})
}
