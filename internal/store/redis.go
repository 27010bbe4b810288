package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// RedisStore implementa TokenStore/CodeStore/ConfirmationCodeStore sobre redis.
// La atomicidad de Consume viene del propio backend (GETDEL): no hay lock
// in-process que sirva cuando el store es compartido entre instancias.
type RedisStore struct {
	Client *rdb.Client
	Prefix string
}

func NewRedisStore(client *rdb.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "idp"
	}
	return &RedisStore{Client: client, Prefix: prefix}
}

func (s *RedisStore) key(kind, id string) string {
	return s.Prefix + ":" + kind + ":" + id
}

func (s *RedisStore) Add(ctx context.Context, t *core.GrantedToken) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	ttl := time.Until(t.AccessExpiresAt)
	if t.RefreshExpiresAt.After(t.AccessExpiresAt) {
		ttl = time.Until(t.RefreshExpiresAt)
	}
	if ttl <= 0 {
		return core.ErrInvalid
	}
	pipe := s.Client.TxPipeline()
	pipe.Set(ctx, s.key("token", t.ID), b, ttl)
	if t.AccessTokenHash != "" {
		pipe.Set(ctx, s.key("at", t.AccessTokenHash), t.ID, ttl)
	}
	if t.RefreshTokenHash != "" {
		pipe.Set(ctx, s.key("rt", t.RefreshTokenHash), t.ID, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) getByIndex(ctx context.Context, kind, hash string) (*core.GrantedToken, error) {
	id, err := s.Client.Get(ctx, s.key(kind, hash)).Result()
	if errors.Is(err, rdb.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	raw, err := s.Client.Get(ctx, s.key("token", id)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t core.GrantedToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *RedisStore) GetByAccessTokenHash(ctx context.Context, hash string) (*core.GrantedToken, error) {
	return s.getByIndex(ctx, "at", hash)
}

func (s *RedisStore) GetByRefreshTokenHash(ctx context.Context, hash string) (*core.GrantedToken, error) {
	return s.getByIndex(ctx, "rt", hash)
}

func (s *RedisStore) Revoke(ctx context.Context, id string) error {
	raw, err := s.Client.Get(ctx, s.key("token", id)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return core.ErrNotFound
	}
	if err != nil {
		return err
	}
	var t core.GrantedToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return err
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	b, err := json.Marshal(&t)
	if err != nil {
		return err
	}
	ttl, err := s.Client.TTL(ctx, s.key("token", id)).Result()
	if err != nil || ttl <= 0 {
		ttl = time.Minute
	}
	return s.Client.Set(ctx, s.key("token", id), b, ttl).Err()
}

// ConsumeRefresh: el GETDEL del índice rt decide el ganador entre rotaciones
// concurrentes; el que recibe Nil perdió. Recién después se marca el token.
func (s *RedisStore) ConsumeRefresh(ctx context.Context, refreshHash string) (*core.GrantedToken, error) {
	id, err := s.Client.GetDel(ctx, s.key("rt", refreshHash)).Result()
	if errors.Is(err, rdb.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	raw, err := s.Client.Get(ctx, s.key("token", id)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t core.GrantedToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	if t.RevokedAt != nil {
		return nil, core.ErrNotFound
	}
	if err := s.Revoke(ctx, id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *RedisStore) AddCode(ctx context.Context, c *core.AuthorizationCode) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return core.ErrInvalid
	}
	// SETNX: un code no puede pisarse
	ok, err := s.Client.SetNX(ctx, s.key("code", c.CodeHash), b, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrConflict
	}
	return nil
}

// Consume usa GETDEL: la redención concurrente del mismo code deja
// exactamente un ganador, decidido por redis y no por este proceso.
func (s *RedisStore) Consume(ctx context.Context, codeHash string) (*core.AuthorizationCode, error) {
	raw, err := s.Client.GetDel(ctx, s.key("code", codeHash)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var c core.AuthorizationCode
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *RedisStore) AddConfirmationCode(ctx context.Context, c *core.ConfirmationCode) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return core.ErrInvalid
	}
	return s.Client.Set(ctx, s.key("confirm", c.Code), b, ttl).Err()
}

func (s *RedisStore) GetConfirmationCode(ctx context.Context, code string) (*core.ConfirmationCode, error) {
	raw, err := s.Client.Get(ctx, s.key("confirm", code)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var c core.ConfirmationCode
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *RedisStore) RemoveConfirmationCode(ctx context.Context, code string) error {
	return s.Client.Del(ctx, s.key("confirm", code)).Err()
}
