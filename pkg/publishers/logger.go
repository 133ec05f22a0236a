package publishers

import "github.com/samvad-hq/wikiquiz/internal/logger"

// Logger is the structured logger publishers report deliveries through.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger {
	return logger.Ensure(log)
}
