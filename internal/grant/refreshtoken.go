package grant

import (
	"context"
	"fmt"

	tokens "github.com/dropDatabas3/simpleidp/internal/security/token"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
	"github.com/dropDatabas3/simpleidp/internal/validation"
)

// RefreshToken canjea un refresh token por un access nuevo. Chequea que el
// client que redime sea el mismo que recibió el token original y que el
// contexto de emisión (issuer) no haya cambiado. Con RotateRefresh el token
// usado queda revocado y se emite uno nuevo encadenado (rotated_from).
func (s *Service) RefreshToken(ctx context.Context, req *TokenRequest, client *core.Client) (*Token, *Error) {
	if req.RefreshToken == "" {
		return nil, missingParameter("refresh_token", 2360)
	}

	if !client.SupportsGrant(core.GrantRefreshToken) {
		return nil, invalidClient(
			fmt.Sprintf("the client %s doesn't support the grant type %s", client.ID, core.GrantRefreshToken), 2361)
	}

	hash := tokens.SHA256Base64URL(req.RefreshToken)
	granted, err := s.Tokens.GetByRefreshTokenHash(ctx, hash)
	if err != nil || granted == nil {
		return nil, invalidGrant("the refresh token is not valid", 2362)
	}
	if granted.ClientID != client.ID {
		// error de pertenencia propio, distinto de "token inválido"
		return nil, invalidGrant(
			fmt.Sprintf("the token has not been issued for the given client id '%s'", client.ID), 2363)
	}
	if granted.Issuer != s.Issuer.Name {
		return nil, invalidGrant("the refresh token has not been issued by the same issuer", 2364)
	}
	if granted.Revoked() || s.now().After(granted.RefreshExpiresAt) {
		return nil, invalidGrant("the refresh token is not valid", 2365)
	}

	scopes := validation.SplitScopes(granted.Scope)
	opt := issueOptions{
		subject:     granted.Subject,
		scope:       granted.Scope,
		amr:         []string{"refresh"},
		withIDToken: hasScope(scopes, "openid") && granted.Subject != "",
	}
	if s.RotateRefresh {
		// Single-use: el store revoca de forma atómica, de dos rotaciones
		// concurrentes del mismo refresh emite exactamente una. El perdedor
		// ve el token ya consumido.
		if _, err := s.Tokens.ConsumeRefresh(ctx, hash); err != nil {
			return nil, invalidGrant("the refresh token is not valid", 2365)
		}
		opt.withRefresh = true
		opt.rotatedFrom = &granted.ID
	}

	return s.issue(ctx, client, opt)
}
