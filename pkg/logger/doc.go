// Package logger provides the structured logging interface used across the bot.
//
// It wraps zerolog behind a small Logger interface so that engine code can
// be handed a nop logger or the capturing TestLogger in tests.
//
//	log, err := logger.New(&cfg.Logging)
//	log.WithField("username", "john_doe").Info("followed")
//	log.InfoWithFields("throttle engaged", map[string]interface{}{
//	    "window": "1h",
//	    "count":  20,
//	})
package logger
