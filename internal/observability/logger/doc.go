// Package logger wraps a process-wide zap logger with request-scoped children.
//
// Init is called once from main; handlers and services pull a scoped logger
// with From(ctx), which falls back to the singleton when no middleware injected
// one:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Resolve"))
//	log.Info("account linked", logger.AccountID(id))
package logger
