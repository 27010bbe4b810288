package jwt_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"

	jwtx "github.com/dropDatabas3/simpleidp/internal/jwt"
)

func newPayload() *jwtx.Payload {
	p := jwtx.NewPayload()
	p.Set("iss", "https://idp.example.com")
	p.Set("sub", "client-1")
	p.Set("aud", []string{"https://idp.example.com"})
	p.Set("exp", int64(9999999999))
	return p
}

func TestGenerateJWS_RoundTripRS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	tok, err := jwtx.GenerateJWS(newPayload(), "RS256", key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !jwtx.IsJWS(tok) {
		t.Fatal("expected 3-segment JWS")
	}
	got := jwtx.ValidateSignature(tok, &key.PublicKey)
	if got == nil {
		t.Fatal("signature should validate")
	}
	if got.Issuer() != "https://idp.example.com" || got.Subject() != "client-1" {
		t.Fatalf("claims round-trip: iss=%q sub=%q", got.Issuer(), got.Subject())
	}
}

func TestGenerateJWS_RoundTripES256(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tok, err := jwtx.GenerateJWS(newPayload(), "ES256", key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if jwtx.ValidateSignature(tok, &key.PublicKey) == nil {
		t.Fatal("signature should validate")
	}
}

func TestGenerateJWS_RoundTripHS256(t *testing.T) {
	secret := []byte("super-secret-hmac-key")
	tok, err := jwtx.GenerateJWS(newPayload(), "HS256", secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if jwtx.ValidateSignature(tok, secret) == nil {
		t.Fatal("signature should validate")
	}
	if jwtx.ValidateSignature(tok, []byte("otro secreto")) != nil {
		t.Fatal("wrong key must not validate")
	}
}

func TestGenerateJWS_AlgNone(t *testing.T) {
	tok, err := jwtx.GenerateJWS(newPayload(), jwtx.AlgNone, nil)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.HasSuffix(tok, ".") {
		t.Fatalf("alg=none debe terminar con firma vacía: %q", tok)
	}
	if jwtx.ValidateSignature(tok, nil) == nil {
		t.Fatal("alg=none with empty signature should pass")
	}
	// una firma no vacía con alg=none es inválida
	if jwtx.ValidateSignature(tok+"Zm9v", nil) != nil {
		t.Fatal("alg=none with non-empty signature must fail")
	}
}

func TestValidateSignature_Tampered(t *testing.T) {
	key, _ := rsa.GenerateKey(rand.Reader, 2048)
	tok, err := jwtx.GenerateJWS(newPayload(), "RS256", key)
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(tok, ".")
	// payload adulterado, misma firma
	tampered := parts[0] + ".eyJzdWIiOiJvdHJvIn0." + parts[2]
	if jwtx.ValidateSignature(tampered, &key.PublicKey) != nil {
		t.Fatal("tampered payload must not validate")
	}
}

func TestGetJWSHeaderAndPayload(t *testing.T) {
	key, _ := rsa.GenerateKey(rand.Reader, 2048)
	tok, err := jwtx.GenerateJWSWithKid(newPayload(), "RS256", "kid-1", key)
	if err != nil {
		t.Fatal(err)
	}
	h, err := jwtx.GetJWSHeader(tok)
	if err != nil {
		t.Fatal(err)
	}
	if h.Alg != "RS256" || h.Kid != "kid-1" {
		t.Fatalf("header: %+v", h)
	}
	// el payload se extrae sin validar firma
	p, err := jwtx.GetJWSPayload(tok)
	if err != nil {
		t.Fatal(err)
	}
	if p.Subject() != "client-1" {
		t.Fatalf("payload sub: %q", p.Subject())
	}
}

func TestClassify(t *testing.T) {
	if jwtx.IsJWS("a.b") || jwtx.IsJWS("a.b.c.d.e") {
		t.Fatal("segment count misclassified as JWS")
	}
	if !jwtx.IsJWE("a.b.c.d.e") {
		t.Fatal("5 segments should classify as JWE")
	}
	if jwtx.IsJWE("a.b.c") {
		t.Fatal("3 segments is not a JWE")
	}
}
