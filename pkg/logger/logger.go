// Package logger provides structured logging functionality for the safe-proposer application.
// This package configures and creates zap loggers with appropriate settings for
// production and development environments, including HTTP client request logging.
package logger

import (
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig holds the configuration for logger creation.
// This configuration controls the logging level and behavior.
type LoggerConfig struct {
	// Debug enables debug-level logging when true, otherwise uses info level
	Debug bool
}

// NewLogger creates a new structured logger with the specified configuration.
// The logger is configured for production use with JSON encoding and ISO8601 timestamps.
// Debug mode can be enabled through the configuration to include debug-level logs.
//
// Parameters:
//   - cfg: The logger configuration
//   - options: Additional zap options to apply to the logger
//
// Returns:
//   - *zap.Logger: A configured zap logger instance
//   - error: An error if the logger cannot be created
func NewLogger(cfg *LoggerConfig, options ...zap.Option) (*zap.Logger, error) {
	mergedOptions := append([]zap.Option{zap.WithCaller(true)}, options...)

	c := zap.NewProductionConfig()
	c.EncoderConfig = zap.NewProductionEncoderConfig()
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.Debug {
		c.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return c.Build(mergedOptions...)
}

// AttachRestyLogger logs every request made through client with method, url,
// status and duration. Request bodies are not logged; they carry signatures.
//
// Parameters:
//   - client: The resty client to instrument
//   - l: The zap logger to use for request logging
func AttachRestyLogger(client *resty.Client, l *zap.Logger) {
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		l.Sugar().Infow("http_request",
			zap.String("system", "http"),
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("duration", resp.Time()),
		)
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		l.Sugar().Errorw("http_request_failed",
			zap.String("system", "http"),
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Error(err),
		)
	})
}
