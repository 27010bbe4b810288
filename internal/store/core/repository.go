package core

import "context"

type ClientRepository interface {
	GetClientByID(ctx context.Context, id string) (*Client, error)
}

type ResourceOwnerRepository interface {
	GetByUsername(ctx context.Context, username string) (*ResourceOwner, error)
}

type ConsentRepository interface {
	GetConsents(ctx context.Context, subject string) ([]Consent, error)
	AddConsent(ctx context.Context, c *Consent) error
}

// TokenStore: acceso compartido entre requests concurrentes; cada backend
// garantiza sus propias operaciones atómicas (ver CodeStore.Consume).
type TokenStore interface {
	Add(ctx context.Context, t *GrantedToken) error
	GetByAccessTokenHash(ctx context.Context, hash string) (*GrantedToken, error)
	GetByRefreshTokenHash(ctx context.Context, hash string) (*GrantedToken, error)
	Revoke(ctx context.Context, id string) error

	// ConsumeRefresh revoca el token por su refresh hash en una sola operación
	// atómica. Dos rotaciones concurrentes del mismo refresh: exactamente una
	// gana, la otra recibe ErrNotFound. Mismo contrato que CodeStore.Consume.
	ConsumeRefresh(ctx context.Context, refreshHash string) (*GrantedToken, error)
}

// CodeStore guarda authorization codes de un solo uso.
type CodeStore interface {
	AddCode(ctx context.Context, c *AuthorizationCode) error

	// Consume devuelve el code y lo elimina en una sola operación atómica.
	// Dos redenciones concurrentes del mismo code: exactamente una gana,
	// la otra recibe ErrNotFound.
	Consume(ctx context.Context, codeHash string) (*AuthorizationCode, error)
}

type ConfirmationCodeStore interface {
	AddConfirmationCode(ctx context.Context, c *ConfirmationCode) error
	GetConfirmationCode(ctx context.Context, code string) (*ConfirmationCode, error)
	RemoveConfirmationCode(ctx context.Context, code string) error
}
