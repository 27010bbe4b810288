package authenticate

import (
	"crypto/x509"
	"encoding/base64"
	"net/http"
	"strings"
)

// JWTBearerAssertionType es el único client_assertion_type soportado.
const JWTBearerAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

// Instruction captura todas las superficies de credencial que un client puede
// haber presentado en un request. Se construye fresca por request y nunca se
// persiste.
type Instruction struct {
	ClientIDFromHeader     string
	ClientSecretFromHeader string

	ClientIDFromBody     string
	ClientSecretFromBody string

	ClientAssertion     string
	ClientAssertionType string

	Certificate *x509.Certificate
}

// InstructionFromRequest arma la Instruction desde Authorization Basic,
// el form body y el certificado TLS del peer (si hay mTLS).
// El form debe estar parseado antes de llamar.
func InstructionFromRequest(r *http.Request) *Instruction {
	in := &Instruction{
		ClientIDFromBody:     strings.TrimSpace(r.PostForm.Get("client_id")),
		ClientSecretFromBody: strings.TrimSpace(r.PostForm.Get("client_secret")),
		ClientAssertion:      strings.TrimSpace(r.PostForm.Get("client_assertion")),
		ClientAssertionType:  strings.TrimSpace(r.PostForm.Get("client_assertion_type")),
	}

	if id, secret, ok := basicAuth(r.Header.Get("Authorization")); ok {
		in.ClientIDFromHeader = id
		in.ClientSecretFromHeader = secret
	}

	if r.TLS != nil && len(r.TLS.PeerCertificates) > 0 {
		in.Certificate = r.TLS.PeerCertificates[0]
	}
	return in
}

// basicAuth decodifica "Basic base64(id:secret)" tolerando mayúsculas/minúsculas.
func basicAuth(header string) (id, secret string, ok bool) {
	header = strings.TrimSpace(header)
	if len(header) < 6 || !strings.EqualFold(header[:6], "basic ") {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[6:]))
	if err != nil {
		return "", "", false
	}
	id, secret, found := strings.Cut(string(raw), ":")
	if !found || id == "" {
		return "", "", false
	}
	return id, secret, true
}
