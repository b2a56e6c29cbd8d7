// Package agent serves the Layercode webhook: one call per
// conversation turn, signature-verified, answered as a live TTS
// stream.
package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"plutus-api/internal/llm"
	"plutus-api/internal/metrics"
	"plutus-api/internal/setup"
	"plutus-api/internal/shared"
	"plutus-api/internal/signature"
	"plutus-api/internal/voice"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const SystemPrompt = "You are a helpful conversation assistant. You should respond to the user's message in a conversational manner. " +
	"Your output will be spoken by a TTS model. You should respond in a way that is easy for the TTS model to speak and sound natural."

// SignatureHeader carries the webhook signature claimed by the sender.
const SignatureHeader = "layercode-signature"

type Manager struct {
	Log          *zap.SugaredLogger
	Secret       string
	Model        llm.Client
	SystemPrompt string
}

func NewManager(secret string, model llm.Client, log *zap.SugaredLogger) *Manager {
	return &Manager{
		Log:          log,
		Secret:       secret,
		Model:        model,
		SystemPrompt: SystemPrompt,
	}
}

// Handle authenticates the webhook call and, on success, runs the
// turn. Authentication failures terminate the request here; the model
// is never invoked for them.
func (am *Manager) Handle(cc echo.Context) error {
	c := cc.(*setup.Context)

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.String(http.StatusBadRequest, shared.ErrInvalidRequest.Err.Error())
	}

	claimed := c.Request().Header.Get(SignatureHeader)

	if am.Secret == "" {
		c.Log.Errorw("Cannot verify webhook signature - LAYERCODE_WEBHOOK_SECRET is missing",
			"secret_configured", false,
		)
		metrics.WebhookAuthFailures.WithLabelValues(c.Path(), "misconfigured").Inc()
		return c.String(http.StatusInternalServerError, "Server configuration error")
	}

	if !signature.Verify(string(raw), claimed, am.Secret) {
		signaturePresence := "missing"
		if claimed != "" {
			signaturePresence = shared.MaskToken
		}
		c.Log.Errorw("Invalid webhook signature",
			"signature", signaturePresence,
			"secret_configured", true,
			"payload_length", len(raw),
		)
		metrics.WebhookAuthFailures.WithLabelValues(c.Path(), "rejected").Inc()
		return c.String(http.StatusUnauthorized, "Unauthorized")
	}

	var body shared.WebhookBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return c.String(http.StatusBadRequest, shared.ErrInvalidRequest.Err.Error())
	}

	turnID := body.TurnID
	if turnID == "" {
		turnID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), shared.DefaultTurnTimeout)
	defer cancel()

	stream := voice.NewSSEStream(c.Response(), turnID)
	am.runTurn(ctx, c, stream, body, turnID)
	return nil
}
