package authenticate

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/simpleidp/internal/observability/logger"
	"github.com/dropDatabas3/simpleidp/internal/store/core"
)

// auditEvents emite los eventos observables de autenticación de client.
// "start" se emite al despachar; "finish" solo en éxito.
type auditEvents struct {
	log *zap.Logger
}

func newAuditEvents(log *zap.Logger) *auditEvents {
	return &auditEvents{log: log}
}

func (e *auditEvents) start(ctx context.Context, clientID string, method core.AuthMethod) {
	e.log.Info("start authenticate",
		logger.ClientID(clientID),
		logger.AuthMethod(string(method)),
	)
}

func (e *auditEvents) finish(ctx context.Context, clientID string, method core.AuthMethod) {
	e.log.Info("finish authenticate",
		logger.ClientID(clientID),
		logger.AuthMethod(string(method)),
	)
}
