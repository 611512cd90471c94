// Package logger provides leveled, component-scoped logging for mediadl.
//
// Every package asks for its own component logger:
//
//	log := logger.WithComponent(logger.ComponentEngine)
//	log.Info("probe finished", logger.Fields{"url": url, "formats": n})
//
// Output can be plain text or one JSON object per line. Components may be
// switched off individually so a noisy engine does not drown the
// orchestrator's messages.
package logger
