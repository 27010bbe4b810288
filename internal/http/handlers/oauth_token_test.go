package handlers_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/simpleidp/internal/app"
	"github.com/dropDatabas3/simpleidp/internal/authenticate"
	"github.com/dropDatabas3/simpleidp/internal/authorize"
	"github.com/dropDatabas3/simpleidp/internal/grant"
	"github.com/dropDatabas3/simpleidp/internal/http/handlers"
	jwtx "github.com/dropDatabas3/simpleidp/internal/jwt"
	"github.com/dropDatabas3/simpleidp/internal/rate"
	"github.com/dropDatabas3/simpleidp/internal/security/password"
	"github.com/dropDatabas3/simpleidp/internal/store"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

const testIssuer = "https://idp.example.com"

func newContainer(t *testing.T) (*app.Container, *store.MemoryRepository, *store.MemoryStore) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	issuer := jwtx.NewIssuer(testIssuer, "RS256", "test-kid", key)
	repo := store.NewMemoryRepository()
	ms := store.NewMemoryStore()

	c := &app.Container{
		Clients:       repo,
		Owners:        repo,
		Consents:      repo,
		Tokens:        ms,
		Codes:         ms,
		Confirmations: ms,
		Issuer:        issuer,
		Auth:          authenticate.New(repo, jwtx.NewKeyResolver(), testIssuer),
		Grants:        grant.NewService(issuer, ms, ms, repo, ms),
		Authorize:     authorize.NewMachine(repo, repo, ms, ms, issuer),
		Limiter:       rate.Unlimited{},
	}
	return c, repo, ms
}

func seedPasswordClient(t *testing.T, repo *store.MemoryRepository) {
	t.Helper()
	repo.PutClient(&core.Client{
		ID:         "web-app",
		AuthMethod: core.AuthMethodSecretBasic,
		Secrets:    []core.ClientSecret{{Type: core.SecretShared, Value: "s3cr3t"}},
		GrantTypes: []core.GrantType{core.GrantPassword, core.GrantRefreshToken},
		Scopes:     []string{"openid", "profile"},
	})
	phc, err := password.Hash(password.Default, "hunter2")
	require.NoError(t, err)
	repo.PutResourceOwner(&core.ResourceOwner{
		Subject: "sub-alice", Username: "alice", PasswordHash: phc,
	})
}

func postForm(h http.Handler, form url.Values, basicUser, basicPass string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/oauth2/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicUser != "" {
		req.SetBasicAuth(basicUser, basicPass)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTokenEndpoint_PasswordGrant(t *testing.T) {
	c, repo, _ := newContainer(t)
	seedPasswordClient(t, repo)
	h := handlers.NewOAuthTokenHandler(c)

	rec := postForm(h, url.Values{
		"grant_type": {"password"},
		"username":   {"alice"},
		"password":   {"hunter2"},
		"scope":      {"openid"},
	}, "web-app", "s3cr3t")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var tok grant.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	require.NotEmpty(t, tok.AccessToken)
	require.Equal(t, "Bearer", tok.TokenType)
	require.NotEmpty(t, tok.RefreshToken)
	require.NotEmpty(t, tok.IDToken)
}

func TestTokenEndpoint_InvalidClient(t *testing.T) {
	c, repo, _ := newContainer(t)
	seedPasswordClient(t, repo)
	h := handlers.NewOAuthTokenHandler(c)

	rec := postForm(h, url.Values{
		"grant_type": {"password"},
		"username":   {"alice"},
		"password":   {"hunter2"},
	}, "web-app", "wrong")

	// el endpoint responde 400 con el objeto de error plano, sin challenge
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid_client", body["error"])
}

func TestTokenEndpoint_WrongOwnerCredentials(t *testing.T) {
	c, repo, _ := newContainer(t)
	seedPasswordClient(t, repo)
	h := handlers.NewOAuthTokenHandler(c)

	rec := postForm(h, url.Values{
		"grant_type": {"password"},
		"username":   {"alice"},
		"password":   {"wrong"},
	}, "web-app", "s3cr3t")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid_grant", body["error"])
	require.Equal(t, "resource owner credentials are not valid", body["error_description"])
}

func TestTokenEndpoint_MethodNotAllowed(t *testing.T) {
	c, _, _ := newContainer(t)
	h := handlers.NewOAuthTokenHandler(c)

	req := httptest.NewRequest(http.MethodGet, "/oauth2/token", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRevokeThenIntrospect(t *testing.T) {
	c, repo, _ := newContainer(t)
	seedPasswordClient(t, repo)
	tokenH := handlers.NewOAuthTokenHandler(c)
	revokeH := handlers.NewOAuthRevokeHandler(c)
	introspectH := handlers.NewOAuthIntrospectHandler(c)

	rec := postForm(tokenH, url.Values{
		"grant_type": {"password"},
		"username":   {"alice"},
		"password":   {"hunter2"},
		"scope":      {"profile"},
	}, "web-app", "s3cr3t")
	require.Equal(t, http.StatusOK, rec.Code)
	var tok grant.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))

	// introspect: activo
	rec = postForm(introspectH, url.Values{"token": {tok.AccessToken}}, "web-app", "s3cr3t")
	require.Equal(t, http.StatusOK, rec.Code)
	var info map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Equal(t, true, info["active"])
	require.Equal(t, "sub-alice", info["sub"])

	// revoke idempotente: dos veces 200
	rec = postForm(revokeH, url.Values{"token": {tok.AccessToken}}, "web-app", "s3cr3t")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = postForm(revokeH, url.Values{"token": {"token-desconocido"}}, "web-app", "s3cr3t")
	require.Equal(t, http.StatusOK, rec.Code)

	// introspect después de revocar: inactivo
	rec = postForm(introspectH, url.Values{"token": {tok.AccessToken}}, "web-app", "s3cr3t")
	require.Equal(t, http.StatusOK, rec.Code)
	info = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Equal(t, false, info["active"])
}

func TestRevoke_ForeignClient(t *testing.T) {
	c, repo, _ := newContainer(t)
	seedPasswordClient(t, repo)
	repo.PutClient(&core.Client{
		ID:         "otro",
		AuthMethod: core.AuthMethodSecretBasic,
		Secrets:    []core.ClientSecret{{Type: core.SecretShared, Value: "otro-secreto"}},
	})
	tokenH := handlers.NewOAuthTokenHandler(c)
	revokeH := handlers.NewOAuthRevokeHandler(c)

	rec := postForm(tokenH, url.Values{
		"grant_type": {"password"}, "username": {"alice"}, "password": {"hunter2"},
	}, "web-app", "s3cr3t")
	require.Equal(t, http.StatusOK, rec.Code)
	var tok grant.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))

	rec = postForm(revokeH, url.Values{"token": {tok.AccessToken}}, "otro", "otro-secreto")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid_token", body["error"])
	require.Equal(t, "the token has not been issued for the given client id 'otro'", body["error_description"])
}

func TestJWKSAndDiscovery(t *testing.T) {
	c, _, _ := newContainer(t)

	jwks, err := c.Issuer.PublicJWKS()
	require.NoError(t, err)
	h := handlers.NewJWKSHandler(jwks)
	req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var doc struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Keys, 1)
	require.Equal(t, "test-kid", doc.Keys[0]["kid"])

	disc := handlers.NewOIDCDiscoveryHandler(c)
	req = httptest.NewRequest(http.MethodGet, "/.well-known/openid-configuration", nil)
	rec = httptest.NewRecorder()
	disc.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	require.Equal(t, testIssuer, meta["issuer"])
	require.Equal(t, testIssuer+"/oauth2/token", meta["token_endpoint"])
}
