package jwt

import "strings"

// Clasificación por forma: 3 segmentos => JWS, 5 => JWE.
// Siempre clasificar antes de parsear; el error "no es un JWE" es distinto
// de "JWE indesencriptable".

func segments(token string) []string {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return strings.Split(token, ".")
}

// IsJWS reporta si el token tiene forma de JWS compact (header.payload.sig).
func IsJWS(token string) bool {
	parts := segments(token)
	if len(parts) != 3 {
		return false
	}
	// header y payload no pueden ser vacíos; la firma sí (alg "none").
	return parts[0] != "" && parts[1] != ""
}

// IsJWE reporta si el token tiene forma de JWE compact (5 segmentos).
func IsJWE(token string) bool {
	parts := segments(token)
	if len(parts) != 5 {
		return false
	}
	return parts[0] != ""
}
