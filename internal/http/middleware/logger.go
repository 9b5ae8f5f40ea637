package middleware

import (
	"time"

	"uplora/internal/auth"
	"uplora/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger writes one entry per request. The URI is sanitized so
// invite and reset tokens in query strings never reach the log.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the response so the status is final
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("route", c.Path()),
				zap.String("uri", logger.SanitizeURI(req.RequestURI)),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.Int64("bytes_out", res.Size),
				zap.String("request_id", GetRequestID(c)),
				zap.String("remote_ip", c.RealIP()),
			}
			if userID, uerr := auth.GetUserID(c); uerr == nil {
				fields = append(fields, zap.String("user_id", userID.String()))
			}

			switch {
			case res.Status >= 500:
				log.Error("request", fields...)
			case res.Status >= 400:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}

			return nil
		}
	}
}
