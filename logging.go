package transitbuilder

import "go.uber.org/zap"

// InitLogging installs the process-wide structured logger.
func InitLogging() {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
}
