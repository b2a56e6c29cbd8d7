// Package voice is the speech-sink side of a conversation turn: text
// fragments go out as Layercode SSE events, followed by exactly one
// end-of-turn event.
package voice

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"plutus-api/internal/shared"
)

// ErrStreamEnded is returned by TTS once the turn is over.
var ErrStreamEnded = errors.New("turn already ended")

// Stream is the speech sink for one turn. All TTS calls for a turn
// happen before its single effective End.
type Stream interface {
	// TTS forwards one text fragment for immediate speech synthesis.
	TTS(text string) error
	// End signals end-of-turn. Safe to call more than once; only the
	// first call emits the end event.
	End() error
}

// SSEStream writes the Layercode response framing onto an HTTP
// response, flushing after every event.
type SSEStream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	turnID  string
	ended   bool
	endOnce sync.Once
}

// NewSSEStream sets the SSE headers and opens the turn stream.
func NewSSEStream(w http.ResponseWriter, turnID string) *SSEStream {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &SSEStream{w: w, turnID: turnID}
}

func (s *SSEStream) TTS(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return ErrStreamEnded
	}
	return s.writeEvent(shared.VoiceEvent{
		Type:    shared.VoiceEventTTS,
		Content: text,
		TurnID:  s.turnID,
	})
}

func (s *SSEStream) End() error {
	var err error
	s.endOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.ended = true
		err = s.writeEvent(shared.VoiceEvent{
			Type:   shared.VoiceEventEnd,
			TurnID: s.turnID,
		})
	})
	return err
}

// writeEvent marshals one event as an SSE data frame and flushes it so
// fragments reach the voice pipeline without buffering delay.
func (s *SSEStream) writeEvent(event shared.VoiceEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	if flusher, ok := s.w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}
