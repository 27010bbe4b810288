package authorize

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/dropDatabas3/simpleidp/internal/grant"
	jwtx "github.com/dropDatabas3/simpleidp/internal/jwt"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// buildResponse produce el terminal según los response types:
//   - "code" solo: code en query string
//   - cualquier combinación con token/id_token: fragment (implicit/hybrid)
//   - hybrid (code+id_token[+token]): code y tokens front-channel juntos,
//     con c_hash/at_hash embebidos en el id_token como binding de integridad.
func (m *Machine) buildResponse(ctx context.Context, req *Request, client *core.Client, subject string, scopes []string) (*Result, *grant.Error) {
	wantCode := req.HasResponseType("code")
	wantToken := req.HasResponseType("token")
	wantIDToken := req.HasResponseType("id_token")

	params := url.Values{}

	var code string
	if wantCode {
		var err error
		code, err = m.issueCode(ctx, req, client, subject)
		if err != nil {
			return nil, grant.ErrServerError("the authorization code cannot be generated", 2110)
		}
		params.Set("code", code)
	}

	var access string
	if wantToken {
		var expiresIn int64
		var err error
		access, expiresIn, err = m.issueAccess(ctx, client, subject, req.Scope)
		if err != nil {
			return nil, grant.ErrServerError("the access token cannot be issued", 2111)
		}
		params.Set("access_token", access)
		params.Set("token_type", "Bearer")
		params.Set("expires_in", strconv.FormatInt(expiresIn, 10))
	}

	if wantIDToken {
		var atHash, cHash string
		if access != "" {
			atHash = jwtx.AccessTokenHash(access, m.Issuer.Alg)
		}
		if code != "" {
			cHash = jwtx.CodeHash(code, m.Issuer.Alg)
		}
		// el nonce se copia sin modificar al id_token
		idToken, _, err := m.Issuer.IssueIDToken(subject, client.ID, req.Nonce, atHash, cHash, nil)
		if err != nil {
			return nil, grant.ErrServerError("the id token cannot be signed", 2112)
		}
		params.Set("id_token", idToken)
	}

	if req.State != "" {
		params.Set("state", req.State)
	}

	useFragment := wantToken || wantIDToken
	if req.ResponseMode == "fragment" {
		useFragment = true
	}
	// response_mode=query solo es compatible con code-only; los tokens nunca
	// viajan en query string.

	return &Result{
		Outcome:  OutcomeRedirect,
		Location: buildLocation(req.RedirectURI, params, useFragment),
	}, nil
}

// redirectError arma un redirect con error/error_description/state. Solo se
// usa con un redirect_uri ya validado contra el client.
func (m *Machine) redirectError(req *Request, code, desc string) *Result {
	params := url.Values{}
	params.Set("error", code)
	if desc != "" {
		params.Set("error_description", desc)
	}
	if req.State != "" {
		params.Set("state", req.State)
	}
	useFragment := req.HasResponseType("token") || req.HasResponseType("id_token")
	return &Result{
		Outcome:  OutcomeRedirect,
		Location: buildLocation(req.RedirectURI, params, useFragment),
	}
}

func buildLocation(redirectURI string, params url.Values, fragment bool) string {
	sep := "?"
	if fragment {
		sep = "#"
	} else if strings.Contains(redirectURI, "?") {
		sep = "&"
	}
	return redirectURI + sep + params.Encode()
}
