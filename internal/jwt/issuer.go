package jwt

import (
	"crypto"
	"encoding/json"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Issuer firma los tokens del servidor (access / id_token) con la clave activa.
type Issuer struct {
	Name      string // "iss"
	Alg       string // RS256 por defecto
	Kid       string
	Key       crypto.Signer
	AccessTTL time.Duration
	IDTTL     time.Duration
}

func NewIssuer(name, alg, kid string, key crypto.Signer) *Issuer {
	return &Issuer{
		Name:      name,
		Alg:       alg,
		Kid:       kid,
		Key:       key,
		AccessTTL: 15 * time.Minute,
		IDTTL:     15 * time.Minute,
	}
}

// SignClaims firma un MapClaims arbitrario, setea header kid/typ y devuelve el JWT.
func (i *Issuer) SignClaims(claims jwtv5.MapClaims) (string, error) {
	method := jwtv5.GetSigningMethod(i.Alg)
	if method == nil {
		return "", fmt.Errorf("jwt: unsupported signing alg %q", i.Alg)
	}
	tk := jwtv5.NewWithClaims(method, claims)
	tk.Header["typ"] = "JWT"
	if i.Kid != "" {
		tk.Header["kid"] = i.Kid
	}
	return tk.SignedString(i.Key)
}

// IssueAccessToken emite un access token JWT con claims estándar + extras.
func (i *Issuer) IssueAccessToken(sub, clientID, scope string, amr []string, extra map[string]any) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.AccessTTL)
	claims := jwtv5.MapClaims{
		ClaimIssuer:         i.Name,
		ClaimAudience:       clientID,
		ClaimIssuedAt:       now.Unix(),
		ClaimNotBefore:      now.Unix(),
		ClaimExpirationTime: exp.Unix(),
		ClaimJTI:            uuid.NewString(),
		"scope":             scope,
	}
	if sub != "" {
		claims[ClaimSubject] = sub
	} else {
		// client_credentials: el client es el subject
		claims[ClaimSubject] = clientID
	}
	if len(amr) > 0 {
		claims["amr"] = amr
	}
	for k, v := range extra {
		claims[k] = v
	}
	signed, err := i.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueIDToken emite un id_token OIDC. nonce se copia sin modificar; atHash y
// cHash se incluyen solo si vienen (hybrid/implicit binding).
func (i *Issuer) IssueIDToken(sub, clientID, nonce, atHash, cHash string, extra map[string]any) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.IDTTL)
	claims := jwtv5.MapClaims{
		ClaimIssuer:         i.Name,
		ClaimSubject:        sub,
		ClaimAudience:       clientID,
		ClaimIssuedAt:       now.Unix(),
		ClaimExpirationTime: exp.Unix(),
		"azp":               clientID,
	}
	if nonce != "" {
		claims[ClaimNonce] = nonce
	}
	if atHash != "" {
		claims[ClaimAtHash] = atHash
	}
	if cHash != "" {
		claims[ClaimCHash] = cHash
	}
	for k, v := range extra {
		// los claims de binding no se pueden pisar desde extra
		switch k {
		case ClaimIssuer, ClaimSubject, ClaimAudience, ClaimNonce, ClaimAtHash, ClaimCHash:
			continue
		}
		claims[k] = v
	}
	signed, err := i.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Keyfunc para validar tokens emitidos por este issuer (introspección/userinfo).
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		return i.Key.Public(), nil
	}
}

// PublicJWKS serializa la clave pública activa como JWKS para /.well-known/jwks.json.
func (i *Issuer) PublicJWKS() ([]byte, error) {
	key, err := jwk.FromRaw(i.Key.Public())
	if err != nil {
		return nil, err
	}
	_ = key.Set(jwk.KeyIDKey, i.Kid)
	_ = key.Set(jwk.AlgorithmKey, i.Alg)
	_ = key.Set(jwk.KeyUsageKey, "sig")
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, err
	}
	return json.Marshal(set)
}
