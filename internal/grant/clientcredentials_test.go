package grant_test

import (
	"context"
	"testing"

	"github.com/dropDatabas3/simpleidp/internal/grant"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

func ccClient() *core.Client {
	return &core.Client{
		ID:            "machine",
		AuthMethod:    core.AuthMethodSecretBasic,
		GrantTypes:    []core.GrantType{core.GrantClientCredentials},
		ResponseTypes: []core.ResponseType{core.ResponseToken},
		Scopes:        []string{"api:read", "api:write"},
	}
}

func TestClientCredentials_OK(t *testing.T) {
	f := newFixture(t)
	tok, gerr := f.svc.Handle(context.Background(), &grant.TokenRequest{
		GrantType: "client_credentials",
		Scope:     "api:read",
	}, ccClient())
	if gerr != nil {
		t.Fatalf("unexpected: %+v", gerr)
	}
	if tok.AccessToken == "" || tok.TokenType != "Bearer" {
		t.Fatalf("token: %+v", tok)
	}
	// sin resource owner no hay refresh ni id_token
	if tok.RefreshToken != "" || tok.IDToken != "" {
		t.Fatalf("client_credentials must not issue refresh/id_token: %+v", tok)
	}
}

func TestClientCredentials_ScopeRequired(t *testing.T) {
	f := newFixture(t)
	_, gerr := f.svc.Handle(context.Background(), &grant.TokenRequest{GrantType: "client_credentials"}, ccClient())
	if gerr == nil || gerr.Code != "invalid_request" {
		t.Fatalf("got %+v", gerr)
	}
}

func TestClientCredentials_GrantNotAllowed(t *testing.T) {
	f := newFixture(t)
	client := ccClient()
	client.GrantTypes = []core.GrantType{core.GrantPassword}

	_, gerr := f.svc.Handle(context.Background(), &grant.TokenRequest{
		GrantType: "client_credentials", Scope: "api:read",
	}, client)
	if gerr == nil || gerr.Code != "invalid_client" {
		t.Fatalf("got %+v", gerr)
	}
	want := "the client machine doesn't support the grant type client_credentials"
	if gerr.Description != want {
		t.Fatalf("description:\n got %q\nwant %q", gerr.Description, want)
	}
}

// El grant exige además que el client soporte el response type token:
// son capacidades independientes.
func TestClientCredentials_ResponseTypeRequired(t *testing.T) {
	f := newFixture(t)
	client := ccClient()
	client.ResponseTypes = nil

	_, gerr := f.svc.Handle(context.Background(), &grant.TokenRequest{
		GrantType: "client_credentials", Scope: "api:read",
	}, client)
	if gerr == nil || gerr.Code != "invalid_client" {
		t.Fatalf("got %+v", gerr)
	}
	want := "the client 'machine' doesn't support the response type: 'token'"
	if gerr.Description != want {
		t.Fatalf("description:\n got %q\nwant %q", gerr.Description, want)
	}
}
