package agent

import (
	"context"
	"strings"
	"time"

	"plutus-api/internal/llm"
	"plutus-api/internal/metrics"
	"plutus-api/internal/setup"
	"plutus-api/internal/shared"
	"plutus-api/internal/voice"
)

const (
	apologyMessage     = "I apologize, but I am currently experiencing technical difficulties. Please try again later."
	noResponseSentinel = "No text response generated"
)

// runTurn drives one conversational turn: every model fragment is
// forwarded to the speech sink as it arrives, then the final assembled
// message is classified and logged, then end-of-turn is signaled.
// End-of-turn fires on every exit path, including zero fragments and
// model failure, and never before the last forwarded fragment.
func (am *Manager) runTurn(ctx context.Context, c *setup.Context, stream voice.Stream, body shared.WebhookBody, turnID string) {
	defer func() {
		if err := stream.End(); err != nil {
			c.Log.Warnw("Failed to signal end of turn", "error", err.Error())
		}
	}()

	// Session lifecycle and other non-message events get an empty
	// turn: the stream opens and ends without a model call.
	switch body.Type {
	case shared.WebhookTypeMessage:
	case shared.WebhookTypeSessionStart, shared.WebhookTypeSessionEnd:
		c.Log.Debugw("Session lifecycle event", "type", body.Type, "session_id", body.SessionID)
		return
	default:
		c.Log.Debugw("Non-message webhook event", "type", body.Type)
		return
	}

	start := time.Now()
	endpoint := c.Path()

	modelStream, err := am.Model.StreamText(ctx, llm.Request{
		System:   am.SystemPrompt,
		UserText: body.Text,
	})
	if err != nil {
		c.Log.Errorw("Cannot generate AI response", "error", err.Error())
		metrics.ErrorCount.WithLabelValues(endpoint, "model").Inc()
		metrics.Turns.WithLabelValues(endpoint, "error").Inc()
		am.speakApology(c, stream)
		return
	}
	defer func() {
		_ = modelStream.Close()
	}()

	fragments := 0
	var streamedText strings.Builder
	for modelStream.Next() {
		fragment := modelStream.Fragment()
		if fragments == 0 {
			metrics.TimeToFirstFragment.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		}
		if err := stream.TTS(fragment); err != nil {
			c.Log.Warnw("Failed forwarding fragment to speech sink", "error", err.Error())
			metrics.ErrorCount.WithLabelValues(endpoint, "sink").Inc()
			break
		}
		streamedText.WriteString(fragment)
		fragments++
		metrics.TTSFragments.WithLabelValues(endpoint).Inc()
	}

	if err := modelStream.Err(); err != nil {
		c.Log.Errorw("Model stream failed", "error", err.Error(), "fragments_forwarded", fragments)
		metrics.ErrorCount.WithLabelValues(endpoint, "model").Inc()
		metrics.Turns.WithLabelValues(endpoint, "error").Inc()
		if fragments == 0 {
			am.speakApology(c, stream)
		}
		return
	}

	final := modelStream.Final()
	finalText := final.Text()
	if finalText == "" {
		finalText = streamedText.String()
	}
	if finalText == "" {
		finalText = noResponseSentinel
	}
	nonText := final.NonText()

	logArgs := []any{
		"user_message", body.Text,
		"ai_response", finalText,
	}
	// The key is omitted entirely when there is nothing to report;
	// log-volume checks key off its presence.
	if len(nonText) > 0 {
		logArgs = append(logArgs, "non_text_content", summarizeParts(nonText))
	}
	logArgs = append(logArgs,
		"session_id", body.SessionID,
		"turn_id", turnID,
	)
	c.Log.Infow("AI Response", logArgs...)

	for _, part := range nonText {
		am.logNonTextPart(c, part)
	}

	metrics.Turns.WithLabelValues(endpoint, "ok").Inc()
}

// speakApology surfaces an upstream failure as a spoken message rather
// than dead air.
func (am *Manager) speakApology(c *setup.Context, stream voice.Stream) {
	if err := stream.TTS(apologyMessage); err != nil {
		c.Log.Warnw("Failed to speak apology message", "error", err.Error())
	}
}

// logNonTextPart emits the type-specific diagnostic line for one
// non-text content part. Nothing here is ever forwarded to speech.
func (am *Manager) logNonTextPart(c *setup.Context, part llm.ContentPart) {
	switch part.Kind {
	case llm.PartToolCall:
		c.Log.Infow("Tool call detected",
			"tool_name", part.ToolName,
			"tool_call_id", part.ToolCallID,
			"args", string(part.Args),
		)
	case llm.PartFile:
		c.Log.Infow("File reference detected",
			"file_id", part.FileID,
			"mime_type", part.MIMEType,
		)
	case llm.PartReasoning:
		// Reasoning is internal and not spoken; keep it quiet.
		c.Log.Debugw("AI reasoning", "reasoning", part.Text)
	case llm.PartRedactedReasoning:
		c.Log.Debugw("AI reasoning redacted by provider")
	case llm.PartText:
		// Text parts never reach here; NonText filters them.
	default:
		c.Log.Warnw("Unrecognized content part in model response", "part", string(part.Raw))
	}
}

// summarizeParts renders non-text parts as plain key/value maps for
// the structured log line.
func summarizeParts(parts []llm.ContentPart) []map[string]any {
	summaries := make([]map[string]any, 0, len(parts))
	for _, part := range parts {
		summary := map[string]any{"type": string(part.Kind)}
		switch part.Kind {
		case llm.PartToolCall:
			summary["tool_name"] = part.ToolName
			summary["tool_call_id"] = part.ToolCallID
			summary["args"] = string(part.Args)
		case llm.PartFile:
			summary["file_id"] = part.FileID
			summary["mime_type"] = part.MIMEType
		default:
			summary["part"] = string(part.Raw)
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
