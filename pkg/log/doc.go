// Package log provides trackd's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via text or JSON handlers. Components receive a
// Logger by injection at construction time; there is no package-level
// default logger.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormat(log.FormatText),
//	)
//	l = l.With(log.Component("gateway"))
//	l.Info("listening", log.Str("addr", ":8080"))
//
// # Interop
//
// To integrate with libraries expecting *log.Logger, use RedirectStdLog.
package log
