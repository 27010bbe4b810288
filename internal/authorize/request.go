package authorize

import (
	"net/http"
	"strings"
)

// Request es el query string de /oauth2/authorize ya parseado.
type Request struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	Nonce               string
	Prompt              string
	ResponseMode        string
	CodeChallenge       string
	CodeChallengeMethod string
}

func FromHTTP(r *http.Request) *Request {
	q := r.URL.Query()
	get := func(k string) string { return strings.TrimSpace(q.Get(k)) }
	return &Request{
		ResponseType:        get("response_type"),
		ClientID:            get("client_id"),
		RedirectURI:         get("redirect_uri"),
		Scope:               get("scope"),
		State:               get("state"),
		Nonce:               get("nonce"),
		Prompt:              get("prompt"),
		ResponseMode:        get("response_mode"),
		CodeChallenge:       get("code_challenge"),
		CodeChallengeMethod: get("code_challenge_method"),
	}
}

// ResponseTypes parte el response_type por espacios (p.ej. "code id_token token").
func (r *Request) ResponseTypes() []string {
	return strings.Fields(r.ResponseType)
}

func (r *Request) HasResponseType(rt string) bool {
	for _, t := range r.ResponseTypes() {
		if t == rt {
			return true
		}
	}
	return false
}
