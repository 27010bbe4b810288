package authenticate

import (
	"context"

	"github.com/dropDatabas3/simpleidp/internal/metrics"
	"github.com/dropDatabas3/simpleidp/internal/observability/logger"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
	jwtx "github.com/dropDatabas3/simpleidp/internal/jwt"
)

// Result es el resultado de autenticar: client resuelto o mensaje de error.
// Nunca ambos nil/vacíos a la vez.
type Result struct {
	Client  *core.Client
	Message string
}

func (r Result) OK() bool { return r.Client != nil }

// Authenticator resuelve el client id de la instruction, busca el client y
// despacha a la única estrategia que corresponde al método configurado.
// Sin estado por llamada.
type Authenticator struct {
	clients    core.ClientRepository
	assertion  *assertionAuthenticator
	basic      secretBasicStrategy
	post       secretPostStrategy
	tls        tlsStrategy
	audit      *auditEvents
}

func New(clients core.ClientRepository, keys *jwtx.KeyResolver, issuerName string) *Authenticator {
	return &Authenticator{
		clients: clients,
		assertion: &assertionAuthenticator{
			clients:    clients,
			keys:       keys,
			issuerName: issuerName,
		},
		audit: newAuditEvents(logger.Named("audit")),
	}
}

// Authenticate implementa el flujo completo. Instruction nil es un error de
// programación, no de protocolo.
func (a *Authenticator) Authenticate(ctx context.Context, in *Instruction) Result {
	if in == nil {
		panic("authenticate: nil instruction")
	}

	clientID := a.tryGetClientID(in)
	if clientID == "" {
		return fail(core.AuthMethod(""), ErrClientCannotBeAuthenticated)
	}

	client, err := a.clients.GetClientByID(ctx, clientID)
	if err != nil || client == nil {
		// mismo mensaje que "sin id": no filtrar si el client existe o no
		return fail(core.AuthMethod(""), ErrClientCannotBeAuthenticated)
	}

	method := client.AuthMethod
	a.audit.start(ctx, client.ID, method)

	var (
		authenticated *core.Client
		message       string
	)
	// Despacho por método configurado. Sin fallback: exactamente una
	// estrategia puede autenticar a un client.
	switch method {
	case core.AuthMethodNone:
		authenticated = client
	case core.AuthMethodSecretBasic:
		authenticated = a.basic.Authenticate(in, client)
		message = ErrClientCannotBeAuthenticatedBasic
	case core.AuthMethodSecretPost:
		authenticated = a.post.Authenticate(in, client)
		message = ErrClientCannotBeAuthenticatedPost
	case core.AuthMethodPrivateKeyJWT:
		authenticated, message = a.assertion.PrivateKeyJWT(ctx, in)
	case core.AuthMethodClientSecretJWT:
		secret := firstSharedSecret(client)
		authenticated, message = a.assertion.ClientSecretJWT(ctx, in, secret)
	case core.AuthMethodTLSClientAuth:
		authenticated = a.tls.Authenticate(in, client)
		message = ErrClientCannotBeAuthenticatedTLS
	default:
		message = ErrClientCannotBeAuthenticated
	}

	if authenticated == nil {
		// el evento "finish" NO se emite en fallas
		return fail(method, message)
	}

	a.audit.finish(ctx, authenticated.ID, method)
	metrics.ClientAuthTotal.WithLabelValues(string(method), "ok").Inc()
	return Result{Client: authenticated}
}

// tryGetClientID prueba la extracción de id de cada estrategia en orden de
// prioridad fija; gana el primer resultado no vacío.
func (a *Authenticator) tryGetClientID(in *Instruction) string {
	if id := a.assertion.ClientID(in); id != "" {
		return id
	}
	if id := a.basic.ClientID(in); id != "" {
		return id
	}
	if id := a.post.ClientID(in); id != "" {
		return id
	}
	return a.tls.ClientID(in)
}

func firstSharedSecret(client *core.Client) string {
	secrets := client.SharedSecrets()
	if len(secrets) == 0 {
		return ""
	}
	return secrets[0]
}

func fail(method core.AuthMethod, message string) Result {
	label := string(method)
	if label == "" {
		label = "unknown"
	}
	metrics.ClientAuthTotal.WithLabelValues(label, "fail").Inc()
	if message == "" {
		message = ErrClientCannotBeAuthenticated
	}
	return Result{Message: message}
}
