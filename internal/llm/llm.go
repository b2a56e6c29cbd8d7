// Package llm is the streaming language-model client used to generate
// one assistant response per conversation turn.
package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Request is one generation request: a system prompt plus the user's
// utterance for this turn.
type Request struct {
	System   string
	UserText string
}

// PartKind tags one part of the model's final assembled message.
type PartKind string

const (
	PartText              PartKind = "text"
	PartToolCall          PartKind = "tool-call"
	PartFile              PartKind = "file"
	PartReasoning         PartKind = "reasoning"
	PartRedactedReasoning PartKind = "redacted-reasoning"
	PartUnknown           PartKind = "unknown"
)

// ContentPart is one typed part of the final message. Only the fields
// relevant to Kind are populated; Raw always carries the original
// chunk for diagnostics.
type ContentPart struct {
	Kind       PartKind
	Text       string
	ToolName   string
	ToolCallID string
	Args       json.RawMessage
	FileID     string
	MIMEType   string
	Raw        json.RawMessage
}

// Message is the model's final assembled response.
type Message struct {
	Parts []ContentPart
}

// Text concatenates the text-typed parts of the message.
func (m Message) Text() string {
	var b strings.Builder
	for _, part := range m.Parts {
		if part.Kind == PartText {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// NonText returns the non-text parts in arrival order.
func (m Message) NonText() []ContentPart {
	var parts []ContentPart
	for _, part := range m.Parts {
		if part.Kind != PartText {
			parts = append(parts, part)
		}
	}
	return parts
}

// Stream is one in-flight generation. Consumption is two sequential
// phases: drain the fragment sequence with Next/Fragment, then check
// Err and read the final assembled message with Final. Final is only
// meaningful once Next has returned false. Close releases the
// underlying connection and must be called even when the stream is
// abandoned before Next returns false.
type Stream interface {
	Next() bool
	Fragment() string
	Err() error
	Final() Message
	Close() error
}

// Client starts model generations.
type Client interface {
	StreamText(ctx context.Context, req Request) (Stream, error)
}
