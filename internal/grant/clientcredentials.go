package grant

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// ClientCredentials: el client obtiene un access token a nombre propio.
// Requiere dos capacidades independientes: el grant type client_credentials
// Y el response type token. Sin refresh ni id_token.
func (s *Service) ClientCredentials(ctx context.Context, req *TokenRequest, client *core.Client) (*Token, *Error) {
	if req.Scope == "" {
		return nil, missingParameter("scope", 2340)
	}

	if !client.SupportsGrant(core.GrantClientCredentials) {
		return nil, invalidClient(
			fmt.Sprintf("the client %s doesn't support the grant type %s", client.ID, core.GrantClientCredentials), 2341)
	}
	if !client.SupportsResponseType(core.ResponseToken) {
		return nil, invalidClient(
			fmt.Sprintf("the client '%s' doesn't support the response type: '%s'", client.ID, core.ResponseToken), 2342)
	}

	if _, gerr := validateScopes(req.Scope, client); gerr != nil {
		return nil, gerr
	}

	// subject vacío: el token queda emitido al propio client
	return s.issue(ctx, client, issueOptions{
		scope: req.Scope,
		amr:   []string{"client"},
	})
}
