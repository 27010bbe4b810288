package jwt_test

import (
	"encoding/json"
	"testing"

	jwtx "github.com/dropDatabas3/simpleidp/internal/jwt"
)

func TestPayload_OrderPreserved(t *testing.T) {
	p := jwtx.NewPayload()
	p.Set("iss", "a").Set("sub", "b").Set("aud", "c").Set("custom", 1)

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"iss":"a","sub":"b","aud":"c","custom":1}`
	if string(b) != want {
		t.Fatalf("order not preserved:\n got %s\nwant %s", b, want)
	}

	// Set sobre una key existente no cambia su posición
	p.Set("sub", "b2")
	b, _ = json.Marshal(p)
	if string(b) != `{"iss":"a","sub":"b2","aud":"c","custom":1}` {
		t.Fatalf("re-set moved the key: %s", b)
	}
}

func TestPayload_Audiences(t *testing.T) {
	var p jwtx.Payload
	if err := json.Unmarshal([]byte(`{"aud":"solo"}`), &p); err != nil {
		t.Fatal(err)
	}
	if got := p.Audiences(); len(got) != 1 || got[0] != "solo" {
		t.Fatalf("string aud: %v", got)
	}

	var p2 jwtx.Payload
	if err := json.Unmarshal([]byte(`{"aud":["a","b"]}`), &p2); err != nil {
		t.Fatal(err)
	}
	if got := p2.Audiences(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("list aud: %v", got)
	}
}

func TestPayload_ExpirationMissingVsPresent(t *testing.T) {
	var p jwtx.Payload
	if err := json.Unmarshal([]byte(`{"iss":"x"}`), &p); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.ExpirationTime(); ok {
		t.Fatal("missing exp must report ok=false")
	}

	var p2 jwtx.Payload
	if err := json.Unmarshal([]byte(`{"exp":1700000000}`), &p2); err != nil {
		t.Fatal(err)
	}
	exp, ok := p2.ExpirationTime()
	if !ok || exp != 1700000000 {
		t.Fatalf("exp: %d ok=%v", exp, ok)
	}
}

func TestPayload_UnmarshalKeepsWireOrder(t *testing.T) {
	raw := `{"z":"1","a":"2","m":"3"}`
	var p jwtx.Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatal(err)
	}
	keys := p.Keys()
	if len(keys) != 3 || keys[0] != "z" || keys[1] != "a" || keys[2] != "m" {
		t.Fatalf("wire order lost: %v", keys)
	}
}
