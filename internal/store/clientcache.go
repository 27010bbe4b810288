package store

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// CachedClientRepository envuelve un ClientRepository con un cache in-process
// con TTL. Un client es inmutable durante un flujo de autenticación, así que
// servir una copia cacheada por unos minutos es seguro.
type CachedClientRepository struct {
	inner core.ClientRepository
	cache *gocache.Cache
}

func NewCachedClientRepository(inner core.ClientRepository, ttl time.Duration) *CachedClientRepository {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &CachedClientRepository{
		inner: inner,
		cache: gocache.New(ttl, ttl*2),
	}
}

func (r *CachedClientRepository) GetClientByID(ctx context.Context, id string) (*core.Client, error) {
	if v, ok := r.cache.Get(id); ok {
		return v.(*core.Client), nil
	}
	cl, err := r.inner.GetClientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(id, cl)
	return cl, nil
}

// Invalidate elimina un client del cache (tras un update administrativo).
func (r *CachedClientRepository) Invalidate(id string) {
	r.cache.Delete(id)
}
