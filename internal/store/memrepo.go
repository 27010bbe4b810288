package store

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// MemoryRepository implementa ClientRepository, ResourceOwnerRepository y
// ConsentRepository en memoria. Para desarrollo, seeds y tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	clients  map[string]*core.Client
	owners   map[string]*core.ResourceOwner // por username
	consents map[string][]core.Consent      // por subject
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		clients:  make(map[string]*core.Client),
		owners:   make(map[string]*core.ResourceOwner),
		consents: make(map[string][]core.Consent),
	}
}

func (r *MemoryRepository) PutClient(c *core.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.clients[c.ID] = &cp
}

func (r *MemoryRepository) GetClientByID(ctx context.Context, id string) (*core.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) PutResourceOwner(o *core.ResourceOwner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.owners[o.Username] = &cp
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*core.ResourceOwner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.owners[username]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRepository) GetConsents(ctx context.Context, subject string) ([]core.Consent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Consent, len(r.consents[subject]))
	copy(out, r.consents[subject])
	return out, nil
}

func (r *MemoryRepository) AddConsent(ctx context.Context, c *core.Consent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	if cp.GrantedAt.IsZero() {
		cp.GrantedAt = time.Now().UTC()
	}
	r.consents[c.Subject] = append(r.consents[c.Subject], cp)
	return nil
}
