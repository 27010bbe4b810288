package pg

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// Store implementa ClientRepository, ResourceOwnerRepository y
// ConsentRepository sobre postgres (pgx pool).
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) GetClientByID(ctx context.Context, id string) (*core.Client, error) {
	const q = `
		SELECT id, name, secrets, token_endpoint_auth_method, grant_types,
		       response_types, redirect_uris, scopes, jwks, jwks_uri,
		       id_token_signed_response_alg, require_confirmed_second_factor, created_at
		FROM clients WHERE id = $1`

	var (
		c          core.Client
		secretsRaw []byte
		grants     []string
		responses  []string
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&c.ID, &c.Name, &secretsRaw, &c.AuthMethod, &grants,
		&responses, &c.RedirectURIs, &c.Scopes, &c.JSONWebKeys, &c.JWKSURI,
		&c.IDTokenSignAlg, &c.RequireConfirmedSecondFactor, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(secretsRaw) > 0 {
		if err := json.Unmarshal(secretsRaw, &c.Secrets); err != nil {
			return nil, err
		}
	}
	for _, g := range grants {
		c.GrantTypes = append(c.GrantTypes, core.GrantType(g))
	}
	for _, r := range responses {
		c.ResponseTypes = append(c.ResponseTypes, core.ResponseType(r))
	}
	return &c, nil
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*core.ResourceOwner, error) {
	const q = `
		SELECT subject, username, password_hash, claims, created_at
		FROM resource_owners WHERE username = $1`

	var (
		o         core.ResourceOwner
		claimsRaw []byte
	)
	err := s.pool.QueryRow(ctx, q, username).Scan(
		&o.Subject, &o.Username, &o.PasswordHash, &claimsRaw, &o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(claimsRaw) > 0 {
		if err := json.Unmarshal(claimsRaw, &o.Claims); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

func (s *Store) GetConsents(ctx context.Context, subject string) ([]core.Consent, error) {
	const q = `
		SELECT subject, client_id, scopes, claims, granted_at
		FROM consents WHERE subject = $1 AND revoked_at IS NULL`

	rows, err := s.pool.Query(ctx, q, subject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Consent
	for rows.Next() {
		var c core.Consent
		if err := rows.Scan(&c.Subject, &c.ClientID, &c.Scopes, &c.Claims, &c.GrantedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AddConsent(ctx context.Context, c *core.Consent) error {
	const q = `
		INSERT INTO consents (subject, client_id, scopes, claims, granted_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (subject, client_id)
		DO UPDATE SET scopes = EXCLUDED.scopes, claims = EXCLUDED.claims,
		              granted_at = NOW(), revoked_at = NULL`

	_, err := s.pool.Exec(ctx, q, c.Subject, c.ClientID, c.Scopes, c.Claims)
	return err
}
