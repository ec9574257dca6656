// Package logger builds configured slog.Logger instances for the CRM services.
//
// It wraps the standard library structured logger with environment presets,
// static service attributes, and context attribute extraction so request-scoped
// values (user IDs, request IDs) show up on every record without threading them
// through call sites.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "forgecrm"),
//	    logger.WithContextValue("request_id", requestIDKey),
//	)
//	logger.SetAsDefault(log)
//
// The attr helpers (logger.Error, logger.UserID, logger.MessageID, ...) keep
// attribute keys consistent across packages.
package logger
