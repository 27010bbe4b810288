// Package logger provee un logger Zap singleton con scoping por contexto.
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context scoping: cada request puede llevar un logger con campos
//     adicionales (request_id, client_id) sin crear un nuevo core.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//
// Inicialización (una vez en main):
//
//	logger.Init(logger.Config{Env: os.Getenv("APP_ENV"), Level: os.Getenv("LOG_LEVEL")})
//	defer logger.Sync()
//
// En handlers/services:
//
//	logger.From(ctx).Info("token issued", logger.ClientID(id))
package logger
