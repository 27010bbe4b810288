package authenticate

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// Estrategia tls_client_auth: matchea el certificado presentado contra los
// secrets x509_thumbprint (sha256 base64url del DER) o x509_name (subject)
// registrados del client.

type tlsStrategy struct{}

func (tlsStrategy) ClientID(in *Instruction) string {
	// mTLS no transporta client_id en el certificado de forma confiable;
	// el id viene por el body.
	if in.Certificate == nil {
		return ""
	}
	return in.ClientIDFromBody
}

func (tlsStrategy) Authenticate(in *Instruction, client *core.Client) *core.Client {
	if client == nil || in.Certificate == nil {
		return nil
	}
	sum := sha256.Sum256(in.Certificate.Raw)
	thumbprint := base64.RawURLEncoding.EncodeToString(sum[:])
	subject := in.Certificate.Subject.String()

	for _, s := range client.Secrets {
		switch s.Type {
		case core.SecretX509Thumbprint:
			if strings.EqualFold(s.Value, thumbprint) {
				return client
			}
		case core.SecretX509Name:
			if s.Value == subject {
				return client
			}
		}
	}
	return nil
}
