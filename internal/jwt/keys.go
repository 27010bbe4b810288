package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// KeyResolver resuelve la clave pública de un client para verificar
// client assertions. Orden: JWKS registrado inline, luego jwks_uri remoto.
// El fetch remoto respeta el deadline del caller y falla cerrado: sin clave
// no hay autenticación.
type KeyResolver struct {
	FetchTimeout time.Duration

	group singleflight.Group
	cache *gocache.Cache
}

func NewKeyResolver() *KeyResolver {
	return &KeyResolver{
		FetchTimeout: 5 * time.Second,
		cache:        gocache.New(10*time.Minute, 5*time.Minute),
	}
}

// PublicKeyFor devuelve la raw key del client que matchea alg (y kid si viene).
func (r *KeyResolver) PublicKeyFor(ctx context.Context, client *core.Client, alg, kid string) (any, error) {
	set, err := r.keySet(ctx, client)
	if err != nil {
		return nil, err
	}
	return rawKeyFromSet(set, alg, kid)
}

func (r *KeyResolver) keySet(ctx context.Context, client *core.Client) (jwk.Set, error) {
	if len(client.JSONWebKeys) > 0 {
		return jwk.Parse(client.JSONWebKeys)
	}
	if client.JWKSURI == "" {
		return nil, fmt.Errorf("jwt: client %s has no registered keys", client.ID)
	}

	if cached, ok := r.cache.Get(client.JWKSURI); ok {
		return cached.(jwk.Set), nil
	}

	// singleflight: N requests concurrentes contra el mismo jwks_uri hacen un solo fetch
	v, err, _ := r.group.Do(client.JWKSURI, func() (any, error) {
		fctx := ctx
		if r.FetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, r.FetchTimeout)
			defer cancel()
		}
		set, err := jwk.Fetch(fctx, client.JWKSURI)
		if err != nil {
			return nil, fmt.Errorf("jwt: jwks fetch %s: %w", client.JWKSURI, err)
		}
		r.cache.SetDefault(client.JWKSURI, set)
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(jwk.Set), nil
}

func rawKeyFromSet(set jwk.Set, alg, kid string) (any, error) {
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		if kid != "" && key.KeyID() != "" && key.KeyID() != kid {
			continue
		}
		if ka := key.Algorithm(); ka != nil && ka.String() != "" && ka.String() != alg {
			continue
		}
		var raw any
		if err := key.Raw(&raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
	return nil, fmt.Errorf("jwt: no key matching alg=%s kid=%s", alg, kid)
}
