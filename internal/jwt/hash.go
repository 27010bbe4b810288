package jwt

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"strings"
)

// halfHash implementa at_hash/c_hash de OIDC Core: hash SHA-2 del tamaño
// correspondiente al alg de firma, mitad izquierda, base64url sin padding.
func halfHash(value, sigAlg string) string {
	var sum []byte
	switch {
	case strings.HasSuffix(sigAlg, "384"):
		s := sha512.Sum384([]byte(value))
		sum = s[:]
	case strings.HasSuffix(sigAlg, "512"):
		s := sha512.Sum512([]byte(value))
		sum = s[:]
	default:
		s := sha256.Sum256([]byte(value))
		sum = s[:]
	}
	return base64.RawURLEncoding.EncodeToString(sum[:len(sum)/2])
}

// AccessTokenHash calcula el claim at_hash para un access token.
func AccessTokenHash(accessToken, sigAlg string) string {
	return halfHash(accessToken, sigAlg)
}

// CodeHash calcula el claim c_hash para un authorization code (hybrid flow).
func CodeHash(code, sigAlg string) string {
	return halfHash(code, sigAlg)
}
