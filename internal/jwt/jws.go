package jwt

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// AlgNone deshabilita la firma: el tercer segmento queda vacío.
const AlgNone = "none"

var supportedJWSAlgs = map[string]bool{
	AlgNone: true,
	"HS256": true, "HS384": true, "HS512": true,
	"RS256": true, "RS384": true, "RS512": true,
	"ES256": true, "ES384": true, "ES512": true,
}

// Header es el header JOSE de un JWS compact.
type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ,omitempty"`
	Kid string `json:"kid,omitempty"`
}

// GenerateJWS serializa header+payload en base64url, firma con el algoritmo
// indicado y concatena los tres segmentos.
func GenerateJWS(payload *Payload, alg string, key any) (string, error) {
	return GenerateJWSWithKid(payload, alg, "", key)
}

func GenerateJWSWithKid(payload *Payload, alg, kid string, key any) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("jwt: nil payload")
	}
	if !supportedJWSAlgs[alg] {
		return "", fmt.Errorf("jwt: unsupported alg %q", alg)
	}

	hdr := Header{Alg: alg, Typ: "JWT", Kid: kid}
	hb, err := json.Marshal(hdr)
	if err != nil {
		return "", err
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	signingInput := base64.RawURLEncoding.EncodeToString(hb) + "." + base64.RawURLEncoding.EncodeToString(pb)

	if alg == AlgNone {
		return signingInput + ".", nil
	}

	method := jwtv5.GetSigningMethod(alg)
	if method == nil {
		return "", fmt.Errorf("jwt: unsupported alg %q", alg)
	}
	sig, err := method.Sign(signingInput, key)
	if err != nil {
		return "", err
	}
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// GetJWSHeader extrae el header de un JWS compact. Falla sobre tokens mal formados.
func GetJWSHeader(token string) (*Header, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("jwt: token is not a compact JWS")
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, err
	}
	var h Header
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// GetJWSPayload extrae el payload sin validar la firma.
func GetJWSPayload(token string) (*Payload, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("jwt: token is not a compact JWS")
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, err
	}
	p := NewPayload()
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ValidateSignature recomputa la firma sobre header.payload con el algoritmo
// del header y la key provista. Devuelve el payload solo si la firma es
// válida; nil en cualquier otro caso. Nunca lanza por firma inválida.
func ValidateSignature(token string, key any) *Payload {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}
	hdr, err := GetJWSHeader(token)
	if err != nil || !supportedJWSAlgs[hdr.Alg] {
		return nil
	}
	signingInput := parts[0] + "." + parts[1]

	if hdr.Alg == AlgNone {
		if parts[2] != "" {
			return nil
		}
	} else {
		sig, err := base64.RawURLEncoding.DecodeString(parts[2])
		if err != nil {
			return nil
		}
		method := jwtv5.GetSigningMethod(hdr.Alg)
		if method == nil {
			return nil
		}
		if err := method.Verify(signingInput, sig, key); err != nil {
			return nil
		}
	}

	payload, err := GetJWSPayload(token)
	if err != nil {
		return nil
	}
	return payload
}
