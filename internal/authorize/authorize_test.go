package authorize_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/simpleidp/internal/authorize"
	jwtx "github.com/dropDatabas3/simpleidp/internal/jwt"
	tokens "github.com/dropDatabas3/simpleidp/internal/security/token"
	"github.com/dropDatabas3/simpleidp/internal/store"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

const (
	testIssuer  = "https://idp.example.com"
	redirectURI = "https://app.example.com/cb"
)

type fixture struct {
	machine *authorize.Machine
	repo    *store.MemoryRepository
	stores  *store.MemoryStore
	issuer  *jwtx.Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	issuer := jwtx.NewIssuer(testIssuer, "RS256", "test-kid", key)
	repo := store.NewMemoryRepository()
	ms := store.NewMemoryStore()
	return &fixture{
		machine: authorize.NewMachine(repo, repo, ms, ms, issuer),
		repo:    repo,
		stores:  ms,
		issuer:  issuer,
	}
}

func hybridClient() *core.Client {
	return &core.Client{
		ID:         "web",
		AuthMethod: core.AuthMethodSecretBasic,
		GrantTypes: []core.GrantType{core.GrantAuthorizationCode, core.GrantImplicit},
		ResponseTypes: []core.ResponseType{
			core.ResponseCode, core.ResponseToken, core.ResponseIDToken,
		},
		RedirectURIs: []string{redirectURI},
		Scopes:       []string{"openid", "profile"},
	}
}

func (f *fixture) consent(subject string, scopes ...string) {
	_ = f.repo.AddConsent(context.Background(), &core.Consent{
		Subject: subject, ClientID: "web", Scopes: scopes, GrantedAt: time.Now(),
	})
}

func baseRequest(responseType string) *authorize.Request {
	return &authorize.Request{
		ResponseType: responseType,
		ClientID:     "web",
		RedirectURI:  redirectURI,
		Scope:        "openid",
		State:        "af0ifjsldkj",
		Nonce:        "n-0S6_WzA2Mj",
	}
}

// parseLocation separa query y fragment del redirect generado.
func parseLocation(t *testing.T, loc string) (base string, params url.Values, fragment bool) {
	t.Helper()
	if i := strings.IndexByte(loc, '#'); i >= 0 {
		v, err := url.ParseQuery(loc[i+1:])
		if err != nil {
			t.Fatal(err)
		}
		return loc[:i], v, true
	}
	u, err := url.Parse(loc)
	if err != nil {
		t.Fatal(err)
	}
	return u.Scheme + "://" + u.Host + u.Path, u.Query(), false
}

func TestAuthorize_CodeFlow(t *testing.T) {
	f := newFixture(t)
	f.repo.PutClient(hybridClient())
	f.consent("sub-alice", "openid")

	res, gerr := f.machine.Authorize(context.Background(), baseRequest("code"), "sub-alice")
	if gerr != nil {
		t.Fatalf("unexpected: %+v", gerr)
	}
	if res.Outcome != authorize.OutcomeRedirect {
		t.Fatalf("outcome: %v", res.Outcome)
	}
	base, params, fragment := parseLocation(t, res.Location)
	if fragment {
		t.Fatal("code-only flow must use the query string")
	}
	if base != redirectURI {
		t.Fatalf("base: %q", base)
	}
	code := params.Get("code")
	if code == "" || params.Get("state") != "af0ifjsldkj" {
		t.Fatalf("params: %v", params)
	}

	// el code quedó persistido hasheado y ligado al request
	stored, err := f.stores.Consume(context.Background(), tokens.SHA256Base64URL(code))
	if err != nil {
		t.Fatal(err)
	}
	if stored.ClientID != "web" || stored.Subject != "sub-alice" || stored.Nonce != "n-0S6_WzA2Mj" {
		t.Fatalf("stored code: %+v", stored)
	}
}

// Flujo híbrido completo: code, access token e id_token viajan juntos en el
// fragment, con c_hash y at_hash embebidos en el id_token.
func TestAuthorize_HybridFlow(t *testing.T) {
	f := newFixture(t)
	f.repo.PutClient(hybridClient())
	f.consent("sub-alice", "openid")

	res, gerr := f.machine.Authorize(context.Background(), baseRequest("code id_token token"), "sub-alice")
	if gerr != nil {
		t.Fatalf("unexpected: %+v", gerr)
	}
	_, params, fragment := parseLocation(t, res.Location)
	if !fragment {
		t.Fatal("hybrid flow must use the fragment")
	}
	code := params.Get("code")
	access := params.Get("access_token")
	idToken := params.Get("id_token")
	if code == "" || access == "" || idToken == "" || params.Get("state") != "af0ifjsldkj" {
		t.Fatalf("params: %v", params)
	}

	payload, err := jwtx.GetJWSPayload(idToken)
	if err != nil {
		t.Fatal(err)
	}
	if payload.Nonce() != "n-0S6_WzA2Mj" {
		t.Fatalf("nonce: %q", payload.Nonce())
	}
	if payload.GetString("at_hash") != jwtx.AccessTokenHash(access, "RS256") {
		t.Fatal("at_hash does not bind the access token")
	}
	if payload.GetString("c_hash") != jwtx.CodeHash(code, "RS256") {
		t.Fatal("c_hash does not bind the code")
	}
}

func TestAuthorize_PreRedirectErrors(t *testing.T) {
	f := newFixture(t)
	f.repo.PutClient(hybridClient())

	cases := []struct {
		name   string
		mutate func(*authorize.Request)
	}{
		{"missing response_type", func(r *authorize.Request) { r.ResponseType = "" }},
		{"missing client_id", func(r *authorize.Request) { r.ClientID = "" }},
		{"missing redirect_uri", func(r *authorize.Request) { r.RedirectURI = "" }},
		{"unknown response_type", func(r *authorize.Request) { r.ResponseType = "code saml" }},
		{"unknown client", func(r *authorize.Request) { r.ClientID = "ghost" }},
		{"unregistered redirect", func(r *authorize.Request) { r.RedirectURI = "https://evil.example.com/cb" }},
	}
	for _, tc := range cases {
		req := baseRequest("code")
		tc.mutate(req)
		res, gerr := f.machine.Authorize(context.Background(), req, "sub-alice")
		if gerr == nil || res != nil {
			t.Fatalf("%s: expected a direct error, got res=%+v", tc.name, res)
		}
	}
}

// Errores posteriores a validar el redirect_uri viajan como redirect.
func TestAuthorize_RedirectedErrors(t *testing.T) {
	f := newFixture(t)
	f.repo.PutClient(hybridClient())

	// scope faltante
	req := baseRequest("code")
	req.Scope = ""
	res, gerr := f.machine.Authorize(context.Background(), req, "sub-alice")
	if gerr != nil {
		t.Fatalf("must redirect, got %+v", gerr)
	}
	_, params, _ := parseLocation(t, res.Location)
	if params.Get("error") != "invalid_request" || params.Get("state") != "af0ifjsldkj" {
		t.Fatalf("params: %v", params)
	}

	// openid sin code ni id_token en el response_type
	req = baseRequest("token")
	res, _ = f.machine.Authorize(context.Background(), req, "sub-alice")
	_, params, _ = parseLocation(t, res.Location)
	if params.Get("error_description") != "the authorization flow is not supported" {
		t.Fatalf("params: %v", params)
	}

	// id_token sin nonce
	req = baseRequest("code id_token")
	req.Nonce = ""
	res, _ = f.machine.Authorize(context.Background(), req, "sub-alice")
	_, params, _ = parseLocation(t, res.Location)
	if params.Get("error_description") != "the parameter nonce is missing" {
		t.Fatalf("params: %v", params)
	}
}

func TestAuthorize_PromptNone(t *testing.T) {
	f := newFixture(t)
	f.repo.PutClient(hybridClient())

	// sin sesión: login_required como error redirigido
	req := baseRequest("code")
	req.Prompt = "none"
	res, gerr := f.machine.Authorize(context.Background(), req, "")
	if gerr != nil {
		t.Fatalf("must redirect, got %+v", gerr)
	}
	_, params, _ := parseLocation(t, res.Location)
	if params.Get("error") != "login_required" {
		t.Fatalf("params: %v", params)
	}

	// con sesión pero sin consent previo: tampoco sigue en silencio
	res, _ = f.machine.Authorize(context.Background(), req, "sub-alice")
	_, params, _ = parseLocation(t, res.Location)
	if params.Get("error_description") != "the user needs to give his consent" {
		t.Fatalf("params: %v", params)
	}
}

func TestAuthorize_LoginAndConsentOutcomes(t *testing.T) {
	f := newFixture(t)
	f.repo.PutClient(hybridClient())

	// sin sesión y sin prompt=none: a la página de login
	res, gerr := f.machine.Authorize(context.Background(), baseRequest("code"), "")
	if gerr != nil || res.Outcome != authorize.OutcomeLoginRequired {
		t.Fatalf("got %+v %+v", res, gerr)
	}

	// con sesión pero sin consent: a la página de consent
	res, gerr = f.machine.Authorize(context.Background(), baseRequest("code"), "sub-alice")
	if gerr != nil || res.Outcome != authorize.OutcomeConsentRequired {
		t.Fatalf("got %+v %+v", res, gerr)
	}

	// prompt=consent fuerza re-consentir aunque ya haya uno
	f.consent("sub-alice", "openid")
	req := baseRequest("code")
	req.Prompt = "consent"
	res, gerr = f.machine.Authorize(context.Background(), req, "sub-alice")
	if gerr != nil || res.Outcome != authorize.OutcomeConsentRequired {
		t.Fatalf("got %+v %+v", res, gerr)
	}
}

// El consent tiene que cubrir todos los scopes pedidos, no alcanza un subset.
func TestAuthorize_ConsentMustCoverScopes(t *testing.T) {
	f := newFixture(t)
	f.repo.PutClient(hybridClient())
	f.consent("sub-alice", "openid")

	req := baseRequest("code")
	req.Scope = "openid profile"
	res, gerr := f.machine.Authorize(context.Background(), req, "sub-alice")
	if gerr != nil || res.Outcome != authorize.OutcomeConsentRequired {
		t.Fatalf("got %+v %+v", res, gerr)
	}

	f.consent("sub-alice", "openid", "profile")
	res, gerr = f.machine.Authorize(context.Background(), req, "sub-alice")
	if gerr != nil || res.Outcome != authorize.OutcomeRedirect {
		t.Fatalf("got %+v %+v", res, gerr)
	}
}
