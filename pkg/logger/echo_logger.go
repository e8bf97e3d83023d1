package logger

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"

	apperrors "github.com/wekeepgrowing/custody-gateway/pkg/errors"
)

// maskedHeaders are logged in abbreviated form only.
var maskedHeaders = map[string]bool{
	"Authorization":     true,
	"X-Internal-Secret": true,
}

// NewEchoRequestLogger returns an access log middleware writing to zap.
func NewEchoRequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	config := middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health" || c.Request().URL.Path == "/metrics"
		},
		BeforeNextFunc: func(c echo.Context) {
			c.Set("request-start-time", time.Now())
		},
		HandleError: true,

		LogLatency:       true,
		LogProtocol:      true,
		LogRemoteIP:      true,
		LogHost:          true,
		LogMethod:        true,
		LogURI:           true,
		LogURIPath:       true,
		LogRoutePath:     true,
		LogRequestID:     true,
		LogReferer:       true,
		LogUserAgent:     true,
		LogStatus:        true,
		LogError:         true,
		LogContentLength: true,
		LogResponseSize:  true,

		LogHeaders:     []string{"Content-Type", "Accept", "Authorization", "X-Internal-Secret"},
		LogQueryParams: []string{"limit", "offset"},

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			startTime, _ := c.Get("request-start-time").(time.Time)
			elapsed := time.Since(startTime)

			fields := []zap.Field{
				zap.String("request.remote_ip", v.RemoteIP),
				zap.String("request.host", v.Host),
				zap.String("request.protocol", v.Protocol),
				zap.String("request.method", v.Method),
				zap.String("request.uri", v.URI),
				zap.String("request.path", v.URIPath),
				zap.String("request.route", v.RoutePath),
				zap.String("request.user_agent", v.UserAgent),
				zap.String("request.referer", v.Referer),
				zap.Int("response.status", v.Status),
				zap.Duration("response.latency", v.Latency),
				zap.Duration("response.elapsed_since_before_next", elapsed),
				zap.String("request.request_id", v.RequestID),
				zap.Int64("response.response_size", v.ResponseSize),
				zap.String("request.content_length", v.ContentLength),
			}

			if len(v.Headers) > 0 {
				headers := make(map[string]string)
				for k, values := range v.Headers {
					if len(values) == 0 {
						continue
					}
					if maskedHeaders[k] {
						headers[k] = maskValue(values[0])
					} else {
						headers[k] = values[0]
					}
				}
				fields = append(fields, zap.Any("request.headers", headers))
			}

			if len(v.QueryParams) > 0 {
				fields = append(fields, zap.Any("request.query_params", v.QueryParams))
			}

			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}

			switch {
			case v.Status >= 500:
				logger.Error("Server error", fields...)
			case v.Status >= 400:
				logger.Warn("Client error", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
			return nil
		},
	}

	return middleware.RequestLoggerWithConfig(config)
}

func maskValue(val string) string {
	if len(val) > 15 {
		return val[:10] + "..." + val[len(val)-5:]
	}
	return "[MASKED]"
}

// WithEchoLogger installs the zap backed echo logger and an error handler
// that renders every error as the JSON error envelope.
func WithEchoLogger(e *echo.Echo, logger *zap.Logger) {
	e.Logger = NewEchoZapLogger(logger)

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		status, body := apperrors.ToResponse(err)

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("code", body.Code),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.String("ip", c.RealIP()),
		}
		if status >= http.StatusInternalServerError {
			apperrors.LogError(logger, err, "HTTP error", fields...)
		} else {
			logger.Debug("HTTP error", append(fields, zap.Error(err))...)
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("Failed to send error response", zap.Error(err))
		}
	}
}

// EchoZapLogger implements echo.Logger on top of zap.
type EchoZapLogger struct {
	Logger *zap.Logger

	mu     sync.RWMutex
	level  log.Lvl
	prefix string
}

// NewEchoZapLogger wraps logger as an echo.Logger.
func NewEchoZapLogger(logger *zap.Logger) *EchoZapLogger {
	return &EchoZapLogger{Logger: logger, level: log.INFO}
}

// Output returns a writer that forwards lines to zap at info level.
func (l *EchoZapLogger) Output() io.Writer {
	return &zapWriter{logger: l.Logger}
}

// SetOutput is a no-op; output is owned by zap.
func (l *EchoZapLogger) SetOutput(w io.Writer) {}

func (l *EchoZapLogger) Level() log.Lvl {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *EchoZapLogger) SetLevel(v log.Lvl) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = v
}

// SetHeader is a no-op; the format is owned by zap.
func (l *EchoZapLogger) SetHeader(h string) {}

func (l *EchoZapLogger) Prefix() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.prefix
}

func (l *EchoZapLogger) SetPrefix(p string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prefix = p
}

func (l *EchoZapLogger) enabled(v log.Lvl) bool {
	return v >= l.Level()
}

func (l *EchoZapLogger) sugar() *zap.SugaredLogger {
	if p := l.Prefix(); p != "" {
		return l.Logger.With(zap.String("prefix", p)).Sugar()
	}
	return l.Logger.Sugar()
}

func (l *EchoZapLogger) Print(i ...interface{}) {
	l.sugar().Info(i...)
}

func (l *EchoZapLogger) Printf(format string, i ...interface{}) {
	l.sugar().Infof(format, i...)
}

func (l *EchoZapLogger) Printj(j log.JSON) {
	l.Logger.Info("json_message", zap.Any("json", j))
}

func (l *EchoZapLogger) Debug(i ...interface{}) {
	if l.enabled(log.DEBUG) {
		l.sugar().Debug(i...)
	}
}

func (l *EchoZapLogger) Debugf(format string, i ...interface{}) {
	if l.enabled(log.DEBUG) {
		l.sugar().Debugf(format, i...)
	}
}

func (l *EchoZapLogger) Debugj(j log.JSON) {
	if l.enabled(log.DEBUG) {
		l.Logger.Debug("json_message", zap.Any("json", j))
	}
}

func (l *EchoZapLogger) Info(i ...interface{}) {
	if l.enabled(log.INFO) {
		l.sugar().Info(i...)
	}
}

func (l *EchoZapLogger) Infof(format string, i ...interface{}) {
	if l.enabled(log.INFO) {
		l.sugar().Infof(format, i...)
	}
}

func (l *EchoZapLogger) Infoj(j log.JSON) {
	if l.enabled(log.INFO) {
		l.Logger.Info("json_message", zap.Any("json", j))
	}
}

func (l *EchoZapLogger) Warn(i ...interface{}) {
	if l.enabled(log.WARN) {
		l.sugar().Warn(i...)
	}
}

func (l *EchoZapLogger) Warnf(format string, i ...interface{}) {
	if l.enabled(log.WARN) {
		l.sugar().Warnf(format, i...)
	}
}

func (l *EchoZapLogger) Warnj(j log.JSON) {
	if l.enabled(log.WARN) {
		l.Logger.Warn("json_message", zap.Any("json", j))
	}
}

func (l *EchoZapLogger) Error(i ...interface{}) {
	l.sugar().Error(i...)
}

func (l *EchoZapLogger) Errorf(format string, i ...interface{}) {
	l.sugar().Errorf(format, i...)
}

func (l *EchoZapLogger) Errorj(j log.JSON) {
	l.Logger.Error("json_message", zap.Any("json", j))
}

func (l *EchoZapLogger) Fatal(i ...interface{}) {
	l.sugar().Fatal(i...)
}

func (l *EchoZapLogger) Fatalf(format string, i ...interface{}) {
	l.sugar().Fatalf(format, i...)
}

func (l *EchoZapLogger) Fatalj(j log.JSON) {
	l.Logger.Fatal("json_message", zap.Any("json", j))
}

func (l *EchoZapLogger) Panic(i ...interface{}) {
	l.sugar().Panic(i...)
}

func (l *EchoZapLogger) Panicf(format string, i ...interface{}) {
	l.sugar().Panicf(format, i...)
}

func (l *EchoZapLogger) Panicj(j log.JSON) {
	l.Logger.Panic("json_message", zap.Any("json", j))
}

type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Write(p []byte) (n int, err error) {
	w.logger.Info(string(p))
	return len(p), nil
}
