package main

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dropDatabas3/simpleidp/internal/app"
	"github.com/dropDatabas3/simpleidp/internal/authenticate"
	"github.com/dropDatabas3/simpleidp/internal/authorize"
	"github.com/dropDatabas3/simpleidp/internal/config"
	"github.com/dropDatabas3/simpleidp/internal/grant"
	httpserver "github.com/dropDatabas3/simpleidp/internal/http"
	"github.com/dropDatabas3/simpleidp/internal/http/handlers"
	jwtx "github.com/dropDatabas3/simpleidp/internal/jwt"
	"github.com/dropDatabas3/simpleidp/internal/metrics"
	"github.com/dropDatabas3/simpleidp/internal/observability/logger"
	"github.com/dropDatabas3/simpleidp/internal/rate"
	"github.com/dropDatabas3/simpleidp/internal/store"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
	pgdriver "github.com/dropDatabas3/simpleidp/internal/store/pg"
	pgmigrations "github.com/dropDatabas3/simpleidp/migrations/postgres"
	rdb "github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:   "simpleidp",
		Short: "Identity provider OAuth2/OIDC",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", envOr("CONFIG_FILE", "config.yaml"), "ruta al YAML de configuración")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfgPath)
		},
	}

	var keyOut string
	var keyAlg string
	genkey := &cobra.Command{
		Use:   "genkey",
		Short: "Genera una clave de firma PEM",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenKey(keyOut, keyAlg)
		},
	}
	genkey.Flags().StringVar(&keyOut, "out", "signing.pem", "archivo destino")
	genkey.Flags().StringVar(&keyAlg, "alg", "RS256", "algoritmo de firma (RS256/ES256)")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones de postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cfgPath)
		},
	}

	root.AddCommand(serve, genkey, migrate)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "simpleidp",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("main")

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	key, err := loadSigningKey(cfg.JWT.KeyFile, cfg.JWT.Alg)
	if err != nil {
		return fmt.Errorf("signing key: %w", err)
	}
	issuer := jwtx.NewIssuer(cfg.JWT.Issuer, cfg.JWT.Alg, cfg.JWT.Kid, key)
	issuer.AccessTTL = cfg.AccessTTL()
	issuer.IDTTL = cfg.AccessTTL()

	c, pings, cleanup, err := buildContainer(ctx, cfg, issuer)
	if err != nil {
		return err
	}
	defer cleanup()

	jwks, err := issuer.PublicJWKS()
	if err != nil {
		return fmt.Errorf("jwks: %w", err)
	}

	router := httpserver.NewRouter(httpserver.Endpoints{
		JWKS:       handlers.NewJWKSHandler(jwks),
		Discovery:  handlers.NewOIDCDiscoveryHandler(c),
		Authorize:  handlers.NewOAuthAuthorizeHandler(c, envOr("LOGIN_URL", ""), envOr("CONSENT_URL", "")),
		Token:      handlers.NewOAuthTokenHandler(c),
		Introspect: handlers.NewOAuthIntrospectHandler(c),
		Revoke:     handlers.NewOAuthRevokeHandler(c),
		Readyz:     handlers.NewReadyzHandler(pings...),
	})

	log.Info("listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("issuer", issuer.Name),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("token_store", cfg.TokenStore.Driver),
	)
	if err := httpserver.Start(ctx, cfg.Server.Addr, router); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("stopped")
	return nil
}

// buildContainer cablea repos y stores según los drivers configurados.
func buildContainer(ctx context.Context, cfg *config.Config, issuer *jwtx.Issuer) (*app.Container, []func(context.Context) error, func(), error) {
	var (
		clients  core.ClientRepository
		owners   core.ResourceOwnerRepository
		consents core.ConsentRepository
		pings    []func(context.Context) error
		cleanups []func()
	)

	switch cfg.Storage.Driver {
	case "postgres":
		pg, err := pgdriver.New(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres: %w", err)
		}
		cleanups = append(cleanups, pg.Close)
		pings = append(pings, pg.Ping)
		clients = store.NewCachedClientRepository(pg, cfg.AccessTTL())
		owners = pg
		consents = pg
	default:
		mem := store.NewMemoryRepository()
		clients = mem
		owners = mem
		consents = mem
	}

	var (
		tokens        core.TokenStore
		codes         core.CodeStore
		confirmations core.ConfirmationCodeStore
		limiter       rate.Limiter = rate.Unlimited{}
	)

	switch cfg.TokenStore.Driver {
	case "redis":
		client := rdb.NewClient(&rdb.Options{Addr: cfg.TokenStore.Redis.Addr, DB: cfg.TokenStore.Redis.DB})
		cleanups = append(cleanups, func() { _ = client.Close() })
		pings = append(pings, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		rs := store.NewRedisStore(client, cfg.TokenStore.Redis.Prefix)
		tokens, codes, confirmations = rs, rs, rs
		if cfg.Rate.Enabled {
			limiter = rate.NewRedisLimiter(client, "", cfg.Rate.Max, cfg.RateWindow())
		}
	default:
		ms := store.NewMemoryStore()
		tokens, codes, confirmations = ms, ms, ms
	}

	grants := grant.NewService(issuer, tokens, codes, owners, confirmations)
	grants.RefreshTTL = cfg.RefreshTTL()
	grants.RotateRefresh = cfg.RotateRefresh()

	machine := authorize.NewMachine(clients, consents, codes, tokens, issuer)
	machine.CodeTTL = cfg.CodeTTL()

	c := &app.Container{
		Clients:       clients,
		Owners:        owners,
		Consents:      consents,
		Tokens:        tokens,
		Codes:         codes,
		Confirmations: confirmations,
		Issuer:        issuer,
		Auth:          authenticate.New(clients, jwtx.NewKeyResolver(), issuer.Name),
		Grants:        grants,
		Authorize:     machine,
		Limiter:       limiter,
	}

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	return c, pings, cleanup, nil
}

// loadSigningKey lee la clave PEM; sin archivo genera una efímera (solo dev).
func loadSigningKey(path, alg string) (crypto.Signer, error) {
	if path == "" {
		return generateKey(alg)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		signer, ok := k.(crypto.Signer)
		if !ok {
			return nil, errors.New("unsupported private key type")
		}
		return signer, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
}

func runMigrate(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.DSN == "" {
		return errors.New("migrate requiere storage.driver=postgres y un DSN")
	}
	ctx := context.Background()
	pg, err := pgdriver.New(ctx, cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.Migrate(ctx, pgmigrations.FS); err != nil {
		return err
	}
	fmt.Println("migraciones aplicadas")
	return nil
}

func generateKey(alg string) (crypto.Signer, error) {
	if strings.HasPrefix(alg, "ES") {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	return rsa.GenerateKey(rand.Reader, 2048)
}

func runGenKey(out, alg string) error {
	key, err := generateKey(alg)
	if err != nil {
		return err
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pem.Encode(f, &pem.Block{Type: "PRIVATE KEY", Bytes: der}); err != nil {
		return err
	}
	fmt.Printf("clave %s escrita en %s\n", alg, out)
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
