// Package health reports whether the service holds the configuration
// it needs to operate.
package health

import (
	"net/http"
	"time"

	"plutus-api/internal/config"

	"github.com/labstack/echo/v4"
)

type Manager struct {
	Cfg         config.Config
	ServiceName string
}

func NewManager(cfg config.Config, serviceName string) *Manager {
	return &Manager{Cfg: cfg, ServiceName: serviceName}
}

type Response struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Service     string `json:"service"`
	Environment string `json:"environment"`
	Checks      Checks `json:"checks"`
}

type Checks struct {
	Environment CheckResult `json:"environment"`
}

type CheckResult struct {
	Status string   `json:"status"`
	Errors []string `json:"errors,omitempty"`
}

// Handle returns 200/healthy when every critical key is configured,
// 503/degraded otherwise with the missing keys listed by name.
func (m *Manager) Handle(c echo.Context) error {
	validation := m.Cfg.Validate()

	status := "healthy"
	environment := "configured"
	checkStatus := "pass"
	code := http.StatusOK
	if !validation.Valid {
		status = "degraded"
		environment = "misconfigured"
		checkStatus = "fail"
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, Response{
		Status:      status,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Service:     m.ServiceName,
		Environment: environment,
		Checks: Checks{
			Environment: CheckResult{
				Status: checkStatus,
				Errors: validation.Errors,
			},
		},
	})
}
