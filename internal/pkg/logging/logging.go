// Package logging builds the process-wide zap logger.
package logging

import "go.uber.org/zap"

// New returns a configured zap logger: human-readable in development,
// JSON in production. Falls back to the production preset if building
// the development logger fails.
func New(dev bool) *zap.Logger {
	if dev {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
