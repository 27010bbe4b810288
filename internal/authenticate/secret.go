package authenticate

import (
	tokens "github.com/dropDatabas3/simpleidp/internal/security/token"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// Estrategias client_secret_basic y client_secret_post: comparan el secret
// presentado contra cada entrada shared_secret del client. Cualquier match
// autentica; sin shared secrets o sin match, nil.

type secretBasicStrategy struct{}

func (secretBasicStrategy) ClientID(in *Instruction) string {
	return in.ClientIDFromHeader
}

func (secretBasicStrategy) Authenticate(in *Instruction, client *core.Client) *core.Client {
	return matchSharedSecret(client, in.ClientSecretFromHeader)
}

type secretPostStrategy struct{}

func (secretPostStrategy) ClientID(in *Instruction) string {
	return in.ClientIDFromBody
}

func (secretPostStrategy) Authenticate(in *Instruction, client *core.Client) *core.Client {
	return matchSharedSecret(client, in.ClientSecretFromBody)
}

func matchSharedSecret(client *core.Client, presented string) *core.Client {
	if client == nil || presented == "" {
		return nil
	}
	for _, secret := range client.SharedSecrets() {
		if tokens.ConstantTimeEquals(secret, presented) {
			return client
		}
	}
	return nil
}
