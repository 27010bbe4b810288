package grant_test

import (
	"context"
	"sync"
	"testing"

	"github.com/dropDatabas3/simpleidp/internal/grant"
	tokens "github.com/dropDatabas3/simpleidp/internal/security/token"
)

// issueWithRefresh emite un token vía password grant y devuelve el refresh.
func issueWithRefresh(t *testing.T, f *fixture) string {
	t.Helper()
	f.addOwner(t, "alice", "hunter2", "sub-alice")
	tok, gerr := f.svc.Handle(context.Background(), &grant.TokenRequest{
		GrantType: "password", Username: "alice", Password: "hunter2", Scope: "openid",
	}, passwordClient())
	if gerr != nil {
		t.Fatalf("seed: %+v", gerr)
	}
	if tok.RefreshToken == "" {
		t.Fatal("seed: no refresh token")
	}
	return tok.RefreshToken
}

func TestRefreshToken_OK(t *testing.T) {
	f := newFixture(t)
	rt := issueWithRefresh(t, f)

	tok, gerr := f.svc.Handle(context.Background(), &grant.TokenRequest{
		GrantType: "refresh_token", RefreshToken: rt,
	}, passwordClient())
	if gerr != nil {
		t.Fatalf("unexpected: %+v", gerr)
	}
	if tok.AccessToken == "" {
		t.Fatal("no access token")
	}
	// el scope original se conserva, y openid trae id_token de nuevo
	if tok.Scope != "openid" || tok.IDToken == "" {
		t.Fatalf("scope/id_token: %+v", tok)
	}
}

// Con rotación activa el refresh usado queda revocado y llega uno nuevo.
func TestRefreshToken_Rotation(t *testing.T) {
	f := newFixture(t)
	rt := issueWithRefresh(t, f)

	tok, gerr := f.svc.Handle(context.Background(), &grant.TokenRequest{
		GrantType: "refresh_token", RefreshToken: rt,
	}, passwordClient())
	if gerr != nil {
		t.Fatalf("first redemption: %+v", gerr)
	}
	if tok.RefreshToken == "" || tok.RefreshToken == rt {
		t.Fatal("rotation must issue a fresh refresh token")
	}

	// el viejo ya no sirve
	_, gerr = f.svc.Handle(context.Background(), &grant.TokenRequest{
		GrantType: "refresh_token", RefreshToken: rt,
	}, passwordClient())
	if gerr == nil || gerr.Code != "invalid_grant" {
		t.Fatalf("rotated token reuse: %+v", gerr)
	}

	// el nuevo sí
	if _, gerr := f.svc.Handle(context.Background(), &grant.TokenRequest{
		GrantType: "refresh_token", RefreshToken: tok.RefreshToken,
	}, passwordClient()); gerr != nil {
		t.Fatalf("new token: %+v", gerr)
	}
}

// Dos canjes concurrentes del mismo refresh con rotación activa: exactamente
// uno emite tokens, el resto recibe invalid_grant.
func TestRefreshToken_ConcurrentRotation(t *testing.T) {
	f := newFixture(t)
	rt := issueWithRefresh(t, f)

	const n = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	var mu sync.Mutex
	var won int
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			tok, gerr := f.svc.Handle(context.Background(), &grant.TokenRequest{
				GrantType: "refresh_token", RefreshToken: rt,
			}, passwordClient())
			if gerr == nil {
				mu.Lock()
				won++
				mu.Unlock()
				if tok.RefreshToken == "" || tok.RefreshToken == rt {
					t.Error("winner must receive a rotated refresh token")
				}
				return
			}
			if gerr.Code != "invalid_grant" {
				t.Errorf("loser: %+v", gerr)
			}
		}()
	}
	close(start)
	wg.Wait()
	if won != 1 {
		t.Fatalf("single-use refresh token redeemed %d times concurrently", won)
	}
}

func TestRefreshToken_WithoutRotation(t *testing.T) {
	f := newFixture(t)
	f.svc.RotateRefresh = false
	rt := issueWithRefresh(t, f)

	tok, gerr := f.svc.Handle(context.Background(), &grant.TokenRequest{
		GrantType: "refresh_token", RefreshToken: rt,
	}, passwordClient())
	if gerr != nil {
		t.Fatalf("unexpected: %+v", gerr)
	}
	if tok.RefreshToken != "" {
		t.Fatal("without rotation no new refresh token is issued")
	}
	// el mismo refresh sigue siendo canjeable
	if _, gerr := f.svc.Handle(context.Background(), &grant.TokenRequest{
		GrantType: "refresh_token", RefreshToken: rt,
	}, passwordClient()); gerr != nil {
		t.Fatalf("reuse without rotation: %+v", gerr)
	}
}

// El refresh de un client no puede canjearlo otro: el error de pertenencia
// es distinto del de token inválido.
func TestRefreshToken_ForeignClient(t *testing.T) {
	f := newFixture(t)
	rt := issueWithRefresh(t, f)

	other := passwordClient()
	other.ID = "otro-client"
	_, gerr := f.svc.Handle(context.Background(), &grant.TokenRequest{
		GrantType: "refresh_token", RefreshToken: rt,
	}, other)
	if gerr == nil || gerr.Code != "invalid_grant" {
		t.Fatalf("got %+v", gerr)
	}
	want := "the token has not been issued for the given client id 'otro-client'"
	if gerr.Description != want {
		t.Fatalf("description:\n got %q\nwant %q", gerr.Description, want)
	}
}

func TestRefreshToken_Unknown(t *testing.T) {
	f := newFixture(t)
	raw, _ := tokens.GenerateOpaqueToken(32)
	_, gerr := f.svc.Handle(context.Background(), &grant.TokenRequest{
		GrantType: "refresh_token", RefreshToken: raw,
	}, passwordClient())
	if gerr == nil || gerr.Description != "the refresh token is not valid" {
		t.Fatalf("got %+v", gerr)
	}
}

// Un refresh emitido bajo otro issuer no se acepta.
func TestRefreshToken_DifferentIssuer(t *testing.T) {
	f := newFixture(t)
	rt := issueWithRefresh(t, f)

	granted, err := f.stores.GetByRefreshTokenHash(context.Background(), tokens.SHA256Base64URL(rt))
	if err != nil {
		t.Fatal(err)
	}
	granted.Issuer = "https://otro-idp.example.com"
	if err := f.stores.Add(context.Background(), granted); err != nil {
		t.Fatal(err)
	}

	_, gerr := f.svc.Handle(context.Background(), &grant.TokenRequest{
		GrantType: "refresh_token", RefreshToken: rt,
	}, passwordClient())
	if gerr == nil || gerr.Description != "the refresh token has not been issued by the same issuer" {
		t.Fatalf("got %+v", gerr)
	}
}
