package jwt

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Nombres de claims estándar usados por la lógica de protocolo.
const (
	ClaimIssuer         = "iss"
	ClaimSubject        = "sub"
	ClaimAudience       = "aud"
	ClaimExpirationTime = "exp"
	ClaimIssuedAt       = "iat"
	ClaimNotBefore      = "nbf"
	ClaimNonce          = "nonce"
	ClaimJTI            = "jti"
	ClaimAtHash         = "at_hash"
	ClaimCHash          = "c_hash"
)

// Payload es un mapa de claims que conserva el orden de inserción.
// Los claims desconocidos se preservan tal cual; los estándar tienen
// accessors tipados encima.
type Payload struct {
	keys   []string
	values map[string]any
}

func NewPayload() *Payload {
	return &Payload{values: make(map[string]any)}
}

// Set agrega o reemplaza un claim. El orden de primera inserción se conserva.
func (p *Payload) Set(key string, value any) *Payload {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
	return p
}

func (p *Payload) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

func (p *Payload) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p *Payload) Len() int { return len(p.keys) }

func (p *Payload) GetString(key string) string {
	if v, ok := p.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (p *Payload) Issuer() string  { return p.GetString(ClaimIssuer) }
func (p *Payload) Subject() string { return p.GetString(ClaimSubject) }
func (p *Payload) Nonce() string   { return p.GetString(ClaimNonce) }
func (p *Payload) JTI() string     { return p.GetString(ClaimJTI) }

// Audiences normaliza "aud": acepta string único o lista.
func (p *Payload) Audiences() []string {
	v, ok := p.values[ClaimAudience]
	if !ok {
		return nil
	}
	switch aud := v.(type) {
	case string:
		return []string{aud}
	case []string:
		return aud
	case []any:
		var out []string
		for _, a := range aud {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ExpirationTime devuelve "exp" como unix timestamp. ok=false si el claim
// no está presente: ausente y expirado son condiciones distintas.
func (p *Payload) ExpirationTime() (int64, bool) {
	return p.unixClaim(ClaimExpirationTime)
}

func (p *Payload) IssuedAt() (int64, bool) {
	return p.unixClaim(ClaimIssuedAt)
}

func (p *Payload) unixClaim(key string) (int64, bool) {
	v, ok := p.values[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

// MarshalJSON serializa los claims en orden de inserción.
func (p *Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodifica preservando el orden de aparición de las keys.
// Los números se mantienen como json.Number para no perder precisión en exp/iat.
func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("jwt: payload is not a JSON object")
	}

	p.keys = nil
	p.values = make(map[string]any)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("jwt: non-string claim key")
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		p.Set(key, value)
	}
	_, err = dec.Token() // '}'
	return err
}
