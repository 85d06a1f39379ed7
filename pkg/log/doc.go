// Package log provides the structured logging abstraction used by every
// cardlink component.
//
// Components accept a Logger and never talk to a logging library directly.
// The zerolog adapter is used by the CLI; the no-op logger is the library
// default so that embedding a Session stays silent unless asked otherwise.
//
// # Usage
//
//	logger := log.NewZerologAdapter(os.Stderr, zerolog.InfoLevel)
//	connLog := logger.With(log.String("conn_id", id))
//	connLog.Info("connected", log.String("address", addr))
//
// Tests that do not care about output use:
//
//	logger := log.NewNoopLogger()
package log
