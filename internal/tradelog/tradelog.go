// Package tradelog writes the human-readable, append-only trade log.
package tradelog

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006-01-02 15:04:05"

// New returns a logger appending "<timestamp>: <message>" lines to path.
// zap opens file sinks with O_APPEND, so existing entries are never truncated.
func New(path string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create trade log dir for %s", path)
	}

	cfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:          "ts",
			MessageKey:       "msg",
			EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
			ConsoleSeparator: ": ",
			LineEnding:       zapcore.DefaultLineEnding,
		},
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrapf(err, "open trade log %s", path)
	}

	return logger, nil
}
