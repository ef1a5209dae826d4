package observability

import (
	"github.com/sirupsen/logrus"
)

// ConfigureLogging selects JSON output in production and text elsewhere.
// An unknown level falls back to info.
func ConfigureLogging(production bool, level string) {
	if production {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("Unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
