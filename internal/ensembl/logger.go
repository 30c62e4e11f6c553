package ensembl

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ZapAdapter forwards resty log messages to a zap logger.
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapAdapter creates a resty logger backed by l.
func NewZapAdapter(l *zap.Logger) resty.Logger {
	return &ZapAdapter{logger: l.Named("ensembl")}
}

// Errorf logs a message at error level.
func (a *ZapAdapter) Errorf(format string, v ...interface{}) {
	a.logger.Error(fmt.Sprintf(format, v...))
}

// Warnf logs a message at warning level.
func (a *ZapAdapter) Warnf(format string, v ...interface{}) {
	a.logger.Warn(fmt.Sprintf(format, v...))
}

// Debugf logs a message at debug level.
func (a *ZapAdapter) Debugf(format string, v ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, v...))
}
