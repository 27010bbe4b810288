package store

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// MemoryStore implementa TokenStore, CodeStore y ConfirmationCodeStore en
// memoria. Útil para desarrollo y tests; la atomicidad de Consume la da el
// mutex del propio store.
type MemoryStore struct {
	mu        sync.Mutex
	byID      map[string]*core.GrantedToken
	byAccess  map[string]string // accessHash -> id
	byRefresh map[string]string
	codes     map[string]*core.AuthorizationCode
	confirm   map[string]*core.ConfirmationCode
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:      make(map[string]*core.GrantedToken),
		byAccess:  make(map[string]string),
		byRefresh: make(map[string]string),
		codes:     make(map[string]*core.AuthorizationCode),
		confirm:   make(map[string]*core.ConfirmationCode),
	}
}

func (s *MemoryStore) Add(ctx context.Context, t *core.GrantedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.byID[t.ID] = &cp
	if t.AccessTokenHash != "" {
		s.byAccess[t.AccessTokenHash] = t.ID
	}
	if t.RefreshTokenHash != "" {
		s.byRefresh[t.RefreshTokenHash] = t.ID
	}
	return nil
}

func (s *MemoryStore) GetByAccessTokenHash(ctx context.Context, hash string) (*core.GrantedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byAccess[hash]
	if !ok {
		return nil, core.ErrNotFound
	}
	return s.clone(id)
}

func (s *MemoryStore) GetByRefreshTokenHash(ctx context.Context, hash string) (*core.GrantedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byRefresh[hash]
	if !ok {
		return nil, core.ErrNotFound
	}
	return s.clone(id)
}

func (s *MemoryStore) Revoke(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return core.ErrNotFound
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	return nil
}

// ConsumeRefresh: lookup y revocación bajo el mismo lock. De dos rotaciones
// concurrentes del mismo refresh gana exactamente una.
func (s *MemoryStore) ConsumeRefresh(ctx context.Context, refreshHash string) (*core.GrantedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byRefresh[refreshHash]
	if !ok {
		return nil, core.ErrNotFound
	}
	t, ok := s.byID[id]
	if !ok || t.RevokedAt != nil {
		return nil, core.ErrNotFound
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	delete(s.byRefresh, refreshHash)
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) clone(id string) (*core.GrantedToken, error) {
	t, ok := s.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) AddCode(ctx context.Context, c *core.AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.codes[c.CodeHash]; exists {
		return core.ErrConflict
	}
	cp := *c
	s.codes[c.CodeHash] = &cp
	return nil
}

// Consume: check-and-delete bajo el mismo lock. De dos redenciones
// concurrentes gana exactamente una.
func (s *MemoryStore) Consume(ctx context.Context, codeHash string) (*core.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[codeHash]
	if !ok {
		return nil, core.ErrNotFound
	}
	delete(s.codes, codeHash)
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) AddConfirmationCode(ctx context.Context, c *core.ConfirmationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.confirm[c.Code] = &cp
	return nil
}

func (s *MemoryStore) GetConfirmationCode(ctx context.Context, code string) (*core.ConfirmationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.confirm[code]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) RemoveConfirmationCode(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.confirm, code)
	return nil
}
