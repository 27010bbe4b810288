package grant

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/simpleidp/internal/security/password"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// Password implementa el resource owner password credentials grant.
// Valida username+password contra el repositorio (comparación de hash) y
// emite access (+refresh si el client soporta refresh_token) ligado al
// subject del resource owner.
func (s *Service) Password(ctx context.Context, req *TokenRequest, client *core.Client) (*Token, *Error) {
	if req.Username == "" {
		return nil, missingParameter("username", 2330)
	}
	if req.Password == "" {
		return nil, missingParameter("password", 2331)
	}

	if !client.SupportsGrant(core.GrantPassword) {
		return nil, invalidClient(
			fmt.Sprintf("the client %s doesn't support the grant type %s", client.ID, core.GrantPassword), 2332)
	}

	scopes, gerr := validateScopes(req.Scope, client)
	if gerr != nil {
		return nil, gerr
	}

	owner, err := s.Owners.GetByUsername(ctx, req.Username)
	if err != nil || owner == nil || !password.Verify(req.Password, owner.PasswordHash) {
		// credenciales malas y usuario inexistente devuelven lo mismo
		return nil, invalidGrant("resource owner credentials are not valid", 2333)
	}

	amr := []string{"pwd"}
	if client.RequireConfirmedSecondFactor {
		if req.ConfirmationCode == "" {
			return nil, missingParameter("confirmation_code", 2334)
		}
		cc, err := s.Confirmations.GetConfirmationCode(ctx, req.ConfirmationCode)
		if err != nil || cc.Subject != owner.Subject || s.now().After(cc.ExpiresAt) {
			return nil, invalidGrant("the confirmation code is not valid", 2335)
		}
		_ = s.Confirmations.RemoveConfirmationCode(ctx, req.ConfirmationCode)
		amr = append(amr, "otp")
	}

	return s.issue(ctx, client, issueOptions{
		subject:     owner.Subject,
		scope:       req.Scope,
		amr:         amr,
		withRefresh: client.SupportsGrant(core.GrantRefreshToken),
		withIDToken: hasScope(scopes, "openid"),
	})
}
