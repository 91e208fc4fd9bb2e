package logger

import (
	"go.uber.org/zap"
)

var Log *zap.SugaredLogger

func Init() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// InitNop installs a no-op logger, used by tests that exercise the
// best-effort roster load path.
func InitNop() {
	Log = zap.NewNop().Sugar()
}
