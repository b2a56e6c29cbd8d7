// Package middleware defines the request instrumentation applied to
// every route.
package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"plutus-api/internal/metrics"
	"plutus-api/internal/setup"
	"plutus-api/internal/shared"

	"github.com/aidarkhanov/nanoid"
	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// bodyParseSentinel is logged in place of a request body that could
// not be captured as JSON.
const bodyParseSentinel = "Unable to parse body"

// TrackConfig is the per-route instrumentation configuration.
type TrackConfig struct {
	// Name is the logical route name attached to every log line.
	Name string
	// SensitiveFields are top-level body fields whose values are
	// masked before logging. Configured per route, never inferred.
	SensitiveFields []string
}

// NewTrackMiddleware wraps a handler with uniform start/terminal
// logging. Every invocation emits exactly one "request started" line
// and exactly one terminal line (completed or failed) sharing a fresh
// request id, then returns the handler's result unchanged.
func NewTrackMiddleware(log *zap.SugaredLogger, cfg TrackConfig) echo.MiddlewareFunc {
	name := cfg.Name
	if name == "" {
		name = "api"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID, _ := nanoid.Generate(shared.RequestIDAlphabet, shared.RequestIDLength)
			reqID = "req_" + reqID

			req := c.Request()
			logger := log.With(
				"request_id", reqID,
				"method", req.Method,
				"url", req.URL.String(),
				"endpoint", c.Path(),
				"context", name,
			)

			body := captureBody(c, cfg.SensitiveFields)

			start := time.Now()
			logger.Infow("API request started",
				"request_body", body,
				"timestamp", start.UTC().Format(time.RFC3339),
			)

			cc := &setup.Context{Context: c, Log: logger, Reqid: reqID}

			terminal := false
			defer func() {
				if terminal {
					return
				}
				// A panic is unwinding through us; emit the one
				// terminal line before handing it to the recover
				// middleware.
				if r := recover(); r != nil {
					duration := time.Since(start)
					logger.Errorw("API request failed",
						"error", fmt.Sprint(r),
						zap.Stack("stack"),
						"processing_time_ms", duration.Milliseconds(),
						"request_body", body,
						"timestamp", time.Now().UTC().Format(time.RFC3339),
					)
					panic(r)
				}
			}()

			err := next(cc)
			duration := time.Since(start)
			metrics.RequestDuration.WithLabelValues(c.Path()).Observe(duration.Seconds())

			// Failed requests count toward the status metric too; if
			// nothing was written yet, use the status echo's error
			// handler is about to write.
			status := cc.Response().Status
			if err != nil && !cc.Response().Committed {
				status = http.StatusInternalServerError
				var httpErr *echo.HTTPError
				if errors.As(err, &httpErr) {
					status = httpErr.Code
				}
			}
			metrics.ResponseCodes.WithLabelValues(c.Path(), fmt.Sprintf("%d", status)).Inc()

			if err != nil {
				terminal = true
				logger.Errorw("API request failed",
					"error", err.Error(),
					zap.Stack("stack"),
					"processing_time_ms", duration.Milliseconds(),
					"request_body", body,
					"timestamp", time.Now().UTC().Format(time.RFC3339),
				)
				return err
			}

			terminal = true
			logger.Infow("API request completed successfully",
				"status", status,
				"processing_time_ms", duration.Milliseconds(),
				"request_body", body,
				"timestamp", time.Now().UTC().Format(time.RFC3339),
			)
			return nil
		}
	}
}

// captureBody reads the request body for logging and puts an identical
// copy back so the handler can read it again. Sensitive fields are
// masked in the returned value only; the body seen by the handler is
// untouched.
func captureBody(c echo.Context, sensitiveFields []string) any {
	req := c.Request()
	if req.Method != http.MethodPost && req.Method != http.MethodPut && req.Method != http.MethodPatch {
		return nil
	}
	if req.Body == nil {
		return bodyParseSentinel
	}

	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return bodyParseSentinel
	}
	req.Body = io.NopCloser(bytes.NewReader(raw))

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed == nil {
		return bodyParseSentinel
	}
	for _, field := range sensitiveFields {
		if _, ok := parsed[field]; ok {
			parsed[field] = shared.MaskToken
		}
	}
	return parsed
}

// NewRecoverMiddleware converts handler panics into plain 500s after
// logging them.
func NewRecoverMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return emw.RecoverWithConfig(emw.RecoverConfig{
		StackSize: 1 << 10, // 1 KB
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			defer func() {
				_ = log.Sync()
			}()
			log.Errorw("Api Panic", "error", err.Error())
			return c.String(500, shared.ErrInternalServerError.Err.Error())
		},
	})
}
