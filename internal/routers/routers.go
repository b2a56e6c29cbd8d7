// Package routers wires managers onto the echo server with their
// per-route instrumentation.
package routers

import (
	"plutus-api/internal/config"
	"plutus-api/internal/llm"
	"plutus-api/internal/middleware"
	"plutus-api/internal/routes/agent"
	"plutus-api/internal/routes/authorize"
	"plutus-api/internal/routes/health"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func RegisterAgentRoutes(e *echo.Group, cfg config.Config, model llm.Client, log *zap.SugaredLogger) {
	am := agent.NewManager(cfg.LayercodeWebhookSecret, model, log)
	e.POST("/agent", am.Handle, middleware.NewTrackMiddleware(log, middleware.TrackConfig{
		Name: "layercode-agent-webhook",
		SensitiveFields: []string{
			"text", "session_id", "turn_id", "connection_id", "layercode-signature",
		},
	}))
}

func RegisterAuthorizeRoutes(e *echo.Group, cfg config.Config, log *zap.SugaredLogger) {
	am := authorize.NewManager(cfg.LayercodeAPIKey, cfg.AuthorizeEndpoint, log)
	e.POST("/authorize", am.Handle, middleware.NewTrackMiddleware(log, middleware.TrackConfig{
		Name: "layercode-authorize-session",
		SensitiveFields: []string{
			"api_key", "client_session_key", "session_id", "pipeline_id",
		},
	}))
}

func RegisterHealthRoutes(e *echo.Group, cfg config.Config, log *zap.SugaredLogger) {
	hm := health.NewManager(cfg, cfg.ServiceName)
	e.GET("/health", hm.Handle, middleware.NewTrackMiddleware(log, middleware.TrackConfig{
		Name: "health-check",
	}))
}
