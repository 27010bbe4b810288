package authenticate

import (
	"context"
	"strings"
	"time"

	jwtx "github.com/dropDatabas3/simpleidp/internal/jwt"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// assertionAuthenticator implementa private_key_jwt y client_secret_jwt.
// Los chequeos sobre el payload vienen de OIDC Core "Client Authentication":
// iss == sub == client_id, aud contiene el issuer del servidor, exp vigente.
type assertionAuthenticator struct {
	clients    core.ClientRepository
	keys       *jwtx.KeyResolver
	issuerName string
}

// ClientID extrae un candidato a client id de la assertion sin validar nada.
func (a *assertionAuthenticator) ClientID(in *Instruction) string {
	if in.ClientAssertionType != JWTBearerAssertionType || in.ClientAssertion == "" {
		return ""
	}
	assertion := in.ClientAssertion
	isJWE := jwtx.IsJWE(assertion)
	isJWS := jwtx.IsJWS(assertion)
	if isJWE == isJWS {
		// ni una cosa ni la otra (o forma ambigua): no hay id extraíble
		return ""
	}
	if isJWE {
		// JWE: el contenido está cifrado, el id viene del body
		return in.ClientIDFromBody
	}
	payload, err := jwtx.GetJWSPayload(assertion)
	if err != nil {
		return ""
	}
	return payload.Issuer()
}

// PrivateKeyJWT autentica con una assertion JWS firmada con la clave privada
// del client. Cada paso falla con su propio mensaje; el éxito exige todos.
func (a *assertionAuthenticator) PrivateKeyJWT(ctx context.Context, in *Instruction) (*core.Client, string) {
	assertion := in.ClientAssertion
	if !jwtx.IsJWS(assertion) {
		return nil, ErrClientAssertionIsNotJWS
	}
	payload, err := jwtx.GetJWSPayload(assertion)
	if err != nil || payload == nil {
		return nil, ErrJWSPayloadCannotBeExtracted
	}

	client, errMsg := a.clientFromIssuer(ctx, payload.Issuer())
	if client == nil {
		return nil, errMsg
	}

	hdr, err := jwtx.GetJWSHeader(assertion)
	if err != nil {
		return nil, ErrJWSPayloadCannotBeExtracted
	}
	key, err := a.keys.PublicKeyFor(ctx, client, hdr.Alg, hdr.Kid)
	if err != nil {
		// sin clave no hay verificación posible: fail closed
		return nil, ErrSignatureIsNotCorrect
	}
	if jwtx.ValidateSignature(assertion, key) == nil {
		return nil, ErrSignatureIsNotCorrect
	}

	return a.validatePayload(payload, client)
}

// ClientSecretJWT autentica con una assertion JWE cifrada con el shared
// secret; el plaintext tiene que ser un JWS válido con los mismos chequeos.
func (a *assertionAuthenticator) ClientSecretJWT(ctx context.Context, in *Instruction, secret string) (*core.Client, string) {
	assertion := in.ClientAssertion
	if !jwtx.IsJWE(assertion) {
		return nil, ErrClientAssertionIsNotJWE
	}
	plaintext, err := jwtx.DecryptJWEWithPassword(assertion, secret)
	if err != nil {
		return nil, ErrJWECannotBeDecrypted
	}

	jws := strings.TrimSpace(string(plaintext))
	if !jwtx.IsJWS(jws) {
		return nil, ErrClientAssertionIsNotJWS
	}
	payload, err := jwtx.GetJWSPayload(jws)
	if err != nil || payload == nil {
		return nil, ErrJWSPayloadCannotBeExtracted
	}

	client, errMsg := a.clientFromIssuer(ctx, payload.Issuer())
	if client == nil {
		return nil, errMsg
	}

	hdr, err := jwtx.GetJWSHeader(jws)
	if err != nil {
		return nil, ErrJWSPayloadCannotBeExtracted
	}
	var key any
	if strings.HasPrefix(hdr.Alg, "HS") {
		key = []byte(secret)
	} else {
		key, err = a.keys.PublicKeyFor(ctx, client, hdr.Alg, hdr.Kid)
		if err != nil {
			return nil, ErrSignatureIsNotCorrect
		}
	}
	if jwtx.ValidateSignature(jws, key) == nil {
		return nil, ErrSignatureIsNotCorrect
	}

	return a.validatePayload(payload, client)
}

func (a *assertionAuthenticator) clientFromIssuer(ctx context.Context, iss string) (*core.Client, string) {
	if strings.TrimSpace(iss) == "" {
		return nil, ErrClientIDInJWTIsNotCorrect
	}
	client, err := a.clients.GetClientByID(ctx, iss)
	if err != nil || client == nil {
		return nil, ErrClientIDInJWTIsNotCorrect
	}
	return client, ""
}

func (a *assertionAuthenticator) validatePayload(payload *jwtx.Payload, client *core.Client) (*core.Client, string) {
	// 1. el subject tiene que coincidir con el issuer (== client id)
	if payload.Subject() != payload.Issuer() {
		return nil, ErrClientIDInJWTIsNotCorrect
	}

	// 2. la audiencia tiene que contener el issuer name del servidor
	audOK := false
	for _, aud := range payload.Audiences() {
		if strings.Contains(aud, a.issuerName) {
			audOK = true
			break
		}
	}
	if !audOK {
		return nil, ErrAudienceInJWTIsNotCorrect
	}

	// 3. exp: ausente y vencido son errores distintos
	exp, ok := payload.ExpirationTime()
	if !ok {
		return nil, ErrJWTExpirationIsMissing
	}
	if time.Now().UTC().Unix() > exp {
		return nil, ErrJWTHasExpired
	}

	return client, ""
}
