package jwt

import (
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwe"
)

// Algoritmos JWE soportados. alg = key management, enc = content encryption.
const (
	JWEAlgRSAOAEP      = "RSA-OAEP"
	JWEAlgRSAOAEP256   = "RSA-OAEP-256"
	JWEAlgDirect       = "dir"
	JWEAlgPBES2HS256   = "PBES2-HS256+A128KW"
	JWEEncA128CBCHS256 = "A128CBC-HS256"
	JWEEncA256CBCHS512 = "A256CBC-HS512"
	JWEEncA256GCM      = "A256GCM"
)

// GenerateJWE produce la serialización compacta de 5 partes
// (header, encrypted key, IV, ciphertext, tag).
func GenerateJWE(plaintext []byte, alg, enc string, key any) (string, error) {
	out, err := jwe.Encrypt(plaintext,
		jwe.WithKey(jwa.KeyEncryptionAlgorithm(alg), key),
		jwe.WithContentEncryption(jwa.ContentEncryptionAlgorithm(enc)),
	)
	if err != nil {
		return "", fmt.Errorf("jwt: jwe encrypt: %w", err)
	}
	return string(out), nil
}

// GenerateJWEWithPassword cifra con un password simétrico (PBES2).
// Se usa para client_secret_jwt: el password es el shared secret del client.
func GenerateJWEWithPassword(plaintext []byte, enc, password string) (string, error) {
	return GenerateJWE(plaintext, JWEAlgPBES2HS256, enc, []byte(password))
}

// DecryptJWE desencripta un JWE compacto. Falla con error de desencripción
// cuando la key es incorrecta o el token está corrupto; la forma del token
// (¿es un JWE?) se chequea aparte con IsJWE.
func DecryptJWE(token string, alg string, key any) ([]byte, error) {
	out, err := jwe.Decrypt([]byte(token),
		jwe.WithKey(jwa.KeyEncryptionAlgorithm(alg), key),
	)
	if err != nil {
		return nil, fmt.Errorf("jwt: jwe decrypt: %w", err)
	}
	return out, nil
}

// DecryptJWEWithPassword desencripta con password simétrico (PBES2).
func DecryptJWEWithPassword(token, password string) ([]byte, error) {
	return DecryptJWE(token, JWEAlgPBES2HS256, []byte(password))
}
