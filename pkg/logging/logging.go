// Package logging builds the process-wide logger.
package logging

import (
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates the service logger, a zap core behind the ectologger interface
// the rest of the service logs through. The returned func flushes buffered
// entries and should run at shutdown.
func New(level string, pretty bool) (ectologger.Logger, func(), error) {
	zapCfg := zap.NewProductionConfig()
	if pretty {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	zl, err := zapCfg.Build()
	if err != nil {
		return nil, nil, err
	}

	logger := zapadapter.NewZapEctoLogger(zl, nil)
	flush := func() { _ = zl.Sync() }
	return logger, flush, nil
}
