package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar para el dominio OAuth2/OIDC. Usar siempre estos helpers
// para que los nombres queden consistentes entre componentes.

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// ClientID crea un campo para el ID del client OAuth.
func ClientID(v string) zap.Field {
	return zap.String("client_id", v)
}

// AuthMethod crea un campo para el método de autenticación del client.
func AuthMethod(v string) zap.Field {
	return zap.String("auth_method", v)
}

// GrantType crea un campo para el grant type del token request.
func GrantType(v string) zap.Field {
	return zap.String("grant_type", v)
}

// ResponseType crea un campo para el response type de /authorize.
func ResponseType(v string) zap.Field {
	return zap.String("response_type", v)
}

// Subject crea un campo para el subject del resource owner.
func Subject(v string) zap.Field {
	return zap.String("sub", v)
}

// Scope crea un campo para el scope solicitado/otorgado.
func Scope(v string) zap.Field {
	return zap.String("scope", v)
}

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Duration crea un campo para la duración de una operación.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}
