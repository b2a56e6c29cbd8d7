package shared

// WebhookBody is the Layercode webhook payload delivered once per
// conversation turn.
type WebhookBody struct {
	Text         string `json:"text"`
	SessionID    string `json:"session_id"`
	TurnID       string `json:"turn_id"`
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id,omitempty"`
}

// Webhook event types we act on. Anything else gets an empty turn.
const (
	WebhookTypeMessage      = "message"
	WebhookTypeSessionStart = "session.start"
	WebhookTypeSessionEnd   = "session.end"
)

// VoiceEvent is one SSE frame of the Layercode response stream.
type VoiceEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	TurnID  string `json:"turn_id,omitempty"`
}

const (
	VoiceEventTTS = "response.tts"
	VoiceEventEnd = "response.end"
)

// AuthorizeBody is the client payload proxied to the Layercode
// session-authorization endpoint.
type AuthorizeBody struct {
	PipelineID string `json:"pipeline_id"`
}
