package core

import "time"

type SecretType string

const (
	SecretShared         SecretType = "shared_secret"
	SecretX509Thumbprint SecretType = "x509_thumbprint"
	SecretX509Name       SecretType = "x509_name"
)

type ClientSecret struct {
	Type  SecretType `json:"type"`
	Value string     `json:"value"`
}

// AuthMethod: método de autenticación del client en el token endpoint.
// Un client tiene exactamente uno; no hay fallback entre métodos.
type AuthMethod string

const (
	AuthMethodNone            AuthMethod = "none"
	AuthMethodSecretBasic     AuthMethod = "client_secret_basic"
	AuthMethodSecretPost      AuthMethod = "client_secret_post"
	AuthMethodPrivateKeyJWT   AuthMethod = "private_key_jwt"
	AuthMethodClientSecretJWT AuthMethod = "client_secret_jwt"
	AuthMethodTLSClientAuth   AuthMethod = "tls_client_auth"
)

type GrantType string

const (
	GrantPassword          GrantType = "password"
	GrantClientCredentials GrantType = "client_credentials"
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantRefreshToken      GrantType = "refresh_token"
	GrantImplicit          GrantType = "implicit"
)

type ResponseType string

const (
	ResponseCode    ResponseType = "code"
	ResponseToken   ResponseType = "token"
	ResponseIDToken ResponseType = "id_token"
)

type Client struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Secrets       []ClientSecret `json:"secrets"`
	AuthMethod    AuthMethod     `json:"token_endpoint_auth_method"`
	GrantTypes    []GrantType    `json:"grant_types"`
	ResponseTypes []ResponseType `json:"response_types"`
	RedirectURIs  []string       `json:"redirect_uris"`
	Scopes        []string       `json:"scopes"`

	// JSONWebKeys: documento JWKS crudo registrado por el client (puede ser nil).
	// JWKSURI: alternativa remota; se resuelve con timeout y fail-closed.
	JSONWebKeys []byte `json:"jwks,omitempty"`
	JWKSURI     string `json:"jwks_uri,omitempty"`

	IDTokenSignAlg string `json:"id_token_signed_response_alg,omitempty"`
	IDTokenEncAlg  string `json:"id_token_encrypted_response_alg,omitempty"`
	IDTokenEncEnc  string `json:"id_token_encrypted_response_enc,omitempty"`

	// RequireConfirmedSecondFactor: el password grant exige confirmation_code.
	RequireConfirmedSecondFactor bool `json:"require_confirmed_second_factor,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// SharedSecrets devuelve solo los secrets de tipo shared_secret.
func (c *Client) SharedSecrets() []string {
	var out []string
	for _, s := range c.Secrets {
		if s.Type == SecretShared {
			out = append(out, s.Value)
		}
	}
	return out
}

func (c *Client) SupportsGrant(gt GrantType) bool {
	for _, g := range c.GrantTypes {
		if g == gt {
			return true
		}
	}
	return false
}

func (c *Client) SupportsResponseType(rt ResponseType) bool {
	for _, r := range c.ResponseTypes {
		if r == rt {
			return true
		}
	}
	return false
}

func (c *Client) HasRedirectURI(uri string) bool {
	for _, r := range c.RedirectURIs {
		if r == uri {
			return true
		}
	}
	return false
}

func (c *Client) AllowsScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type ResourceOwner struct {
	Subject      string         `json:"subject"`
	Username     string         `json:"username"`
	PasswordHash string         `json:"-"`
	Claims       map[string]any `json:"claims,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// GrantedToken: registro persistido de un token emitido. Los valores de
// access/refresh se guardan hasheados (sha256 base64url), nunca en claro.
type GrantedToken struct {
	ID               string
	ClientID         string
	Subject          string // vacío para client_credentials
	AccessTokenHash  string
	RefreshTokenHash string
	TokenType        string
	Scope            string
	Issuer           string // contexto de emisión; se chequea en refresh
	IssuedAt         time.Time
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	RotatedFrom      *string
	RevokedAt        *time.Time
}

func (t *GrantedToken) Revoked() bool { return t.RevokedAt != nil }

type AuthorizationCode struct {
	CodeHash        string    `json:"code_hash"`
	ClientID        string    `json:"client_id"`
	RedirectURI     string    `json:"redirect_uri"`
	Scope           string    `json:"scope"`
	Subject         string    `json:"subject"`
	Nonce           string    `json:"nonce"`
	CodeChallenge   string    `json:"code_challenge,omitempty"`
	ChallengeMethod string    `json:"code_challenge_method,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

type Consent struct {
	Subject   string    `json:"subject"`
	ClientID  string    `json:"client_id"`
	Scopes    []string  `json:"scopes"`
	Claims    []string  `json:"claims,omitempty"`
	GrantedAt time.Time `json:"granted_at"`
}

// Covers: el consent cubre todos los scopes pedidos.
func (c *Consent) Covers(scopes []string) bool {
	for _, want := range scopes {
		found := false
		for _, have := range c.Scopes {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type ConfirmationCode struct {
	Code      string    `json:"code"`
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
