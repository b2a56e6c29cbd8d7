// Package authorize proxies client session authorization to the
// Layercode API.
package authorize

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"plutus-api/internal/setup"
	"plutus-api/internal/shared"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Manager struct {
	Log        *zap.SugaredLogger
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
}

func NewManager(apiKey, endpoint string, log *zap.SugaredLogger) *Manager {
	return &Manager{
		Log:        log,
		APIKey:     apiKey,
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: shared.DefaultRequestTimeout},
	}
}

// Handle validates the request, forwards it upstream with the server's
// API key, and passes the upstream status and body through.
func (m *Manager) Handle(cc echo.Context) error {
	c := cc.(*setup.Context)

	if m.APIKey == "" {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Server configuration error: LAYERCODE_API_KEY is not set",
		})
	}

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": shared.ErrInvalidRequest.Err.Error(),
		})
	}
	var body shared.AuthorizeBody
	if err := json.Unmarshal(raw, &body); err != nil || body.PipelineID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Missing pipeline_id in request body",
		})
	}

	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodPost, m.Endpoint, bytes.NewReader(raw))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.APIKey)

	res, err := m.HTTPClient.Do(req)
	if err != nil {
		c.Log.Warnw("Layercode authorize session request failed", "error", err.Error())
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer func() {
		_ = res.Body.Close()
	}()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		c.Log.Warnw("Failed reading authorize session response", "error", err.Error())
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		message := string(bytes.TrimSpace(resBody))
		if message == "" {
			message = res.Status
		}
		return c.JSON(res.StatusCode, map[string]string{"error": message})
	}

	return c.JSONBlob(http.StatusOK, resBody)
}
