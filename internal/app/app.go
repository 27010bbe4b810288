package app

import (
	"github.com/dropDatabas3/simpleidp/internal/authenticate"
	"github.com/dropDatabas3/simpleidp/internal/authorize"
	"github.com/dropDatabas3/simpleidp/internal/grant"
	jwtx "github.com/dropDatabas3/simpleidp/internal/jwt"
	"github.com/dropDatabas3/simpleidp/internal/rate"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// Container agrupa los colaboradores ya cableados.
type Container struct {
	Clients       core.ClientRepository
	Owners        core.ResourceOwnerRepository
	Consents      core.ConsentRepository
	Tokens        core.TokenStore
	Codes         core.CodeStore
	Confirmations core.ConfirmationCodeStore

	Issuer    *jwtx.Issuer
	Auth      *authenticate.Authenticator
	Grants    *grant.Service
	Authorize *authorize.Machine
	Limiter   rate.Limiter
}
