package infra

import (
	"time"

	"github.com/sirupsen/logrus"
	gormLogger "gorm.io/gorm/logger"
)

// newGormLogger routes gorm's query log through the application logger. SQL
// statements are only printed at debug level.
func newGormLogger(logger *logrus.Logger) gormLogger.Interface {
	level := gormLogger.Warn
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		level = gormLogger.Info
	}

	return gormLogger.New(logger, gormLogger.Config{
		SlowThreshold:             2 * time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
