package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"plutus-api/internal/shared"

	"go.uber.org/zap"
)

// GeminiClient talks to the Google generative-language streaming
// endpoint over SSE.
type GeminiClient struct {
	APIKey   string
	Endpoint string
	Model    string
	Log      *zap.SugaredLogger

	httpClients  map[string]*http.Client
	clientsMutex sync.RWMutex
}

const (
	DefaultGeminiModel = "gemini-2.0-flash-001"

	geminiEndpointFormat = "https://generativelanguage.googleapis.com/v1beta/models/%s:streamGenerateContent?alt=sse"
)

func NewGeminiClient(apiKey, endpoint, model string, log *zap.SugaredLogger) *GeminiClient {
	if model == "" {
		model = DefaultGeminiModel
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf(geminiEndpointFormat, model)
	}
	return &GeminiClient{
		APIKey:      apiKey,
		Endpoint:    endpoint,
		Model:       model,
		Log:         log,
		httpClients: make(map[string]*http.Client),
	}
}

func (g *GeminiClient) getHTTPClient(endpoint string) *http.Client {
	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		g.Log.Warnw("Failed to parse endpoint URL, using full URL as key", "url", endpoint, "error", err)
		parsedURL = &url.URL{Host: endpoint}
	}
	host := parsedURL.Host

	g.clientsMutex.RLock()
	if client, exists := g.httpClients[host]; exists {
		g.clientsMutex.RUnlock()
		return client
	}
	g.clientsMutex.RUnlock()

	g.clientsMutex.Lock()
	defer g.clientsMutex.Unlock()

	if client, exists := g.httpClients[host]; exists {
		return client
	}

	tr := &http.Transport{
		Dial: (&net.Dialer{
			Timeout: shared.ModelDialTimeout,
		}).Dial,
		TLSHandshakeTimeout: shared.ModelTLSHandshakeTimeout,
		DisableKeepAlives:   false,
	}
	client := &http.Client{Transport: tr, Timeout: shared.ModelRequestTimeout}

	g.httpClients[host] = client
	return client
}

// Request body in the generative-language API shape: contents carry the
// conversation, systemInstruction rides alongside rather than as a turn.
type generateBody struct {
	SystemInstruction *generateContent  `json:"systemInstruction,omitempty"`
	Contents          []generateContent `json:"contents"`
}

type generateContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

// StreamText starts a generation and returns the live stream. The
// caller owns draining and closing it; the response body is also closed
// when the stream ends or fails.
func (g *GeminiClient) StreamText(ctx context.Context, req Request) (Stream, error) {
	if g.APIKey == "" {
		return nil, errors.New("model API key is not configured")
	}

	var system *generateContent
	if req.System != "" {
		system = &generateContent{Parts: []generatePart{{Text: req.System}}}
	}
	body, err := json.Marshal(generateBody{
		SystemInstruction: system,
		Contents: []generateContent{
			{Role: "user", Parts: []generatePart{{Text: req.UserText}}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed building model request: %w", err)
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed building model request: %w", err)
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "text/event-stream")
	r.Header.Set("x-goog-api-key", g.APIKey)

	res, err := g.getHTTPClient(g.Endpoint).Do(r)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		_ = res.Body.Close()
		return nil, fmt.Errorf("model responded with status %d: %s", res.StatusCode, strings.TrimSpace(string(detail)))
	}

	return &sseStream{
		body:    res.Body,
		scanner: bufio.NewScanner(res.Body),
	}, nil
}

// streamChunk is one GenerateContentResponse frame from the model. The
// parts are kept raw so each one can be classified with its original
// bytes attached.
type streamChunk struct {
	Candidates []struct {
		Content struct {
			Parts []json.RawMessage `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type streamPart struct {
	Text         string `json:"text"`
	Thought      bool   `json:"thought"`
	FunctionCall *struct {
		ID   string          `json:"id"`
		Name string          `json:"name"`
		Args json.RawMessage `json:"args"`
	} `json:"functionCall"`
	FileData *struct {
		MIMEType string `json:"mimeType"`
		FileURI  string `json:"fileUri"`
	} `json:"fileData"`
}

// sseStream consumes the model's SSE body. It yields text parts as
// fragments and assembles the final message, in arrival order, as it
// scans. The API signals completion with a finishReason on the last
// candidate; there is no explicit stream terminator.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner

	queue     []string
	fragment  string
	parts     []ContentPart
	err       error
	done      bool
	completed bool
}

func (s *sseStream) Next() bool {
	if len(s.queue) > 0 {
		s.fragment = s.queue[0]
		s.queue = s.queue[1:]
		return true
	}
	if s.done {
		return false
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		data, found := strings.CutPrefix(line, "data:")
		if !found {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			s.finish(fmt.Errorf("failed to decode model chunk: %w", err))
			return false
		}
		if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
			s.finish(fmt.Errorf("model blocked the prompt: %s", chunk.PromptFeedback.BlockReason))
			return false
		}

		for _, candidate := range chunk.Candidates {
			if candidate.FinishReason != "" {
				s.completed = true
			}
			for _, raw := range candidate.Content.Parts {
				s.ingest(raw)
			}
		}
		if len(s.queue) > 0 {
			s.fragment = s.queue[0]
			s.queue = s.queue[1:]
			return true
		}
	}

	if err := s.scanner.Err(); err != nil {
		s.finish(fmt.Errorf("failed to read model response: %w", err))
		return false
	}
	if !s.completed {
		s.finish(errors.New("model stream ended without a finish reason"))
		return false
	}
	s.finish(nil)
	return false
}

func (s *sseStream) Fragment() string { return s.fragment }

func (s *sseStream) Err() error { return s.err }

func (s *sseStream) Final() Message { return Message{Parts: s.parts} }

// Close releases the underlying connection. Safe to call after the
// stream has already finished or failed.
func (s *sseStream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.body.Close()
}

func (s *sseStream) finish(err error) {
	s.done = true
	s.err = err
	_ = s.body.Close()
}

// ingest classifies one raw part onto the closed part variants. Text
// lands on the fragment queue and the assembled message; everything
// else only joins the message. Unrecognized shapes land on the unknown
// case rather than being dropped.
func (s *sseStream) ingest(raw json.RawMessage) {
	var part streamPart
	if err := json.Unmarshal(raw, &part); err != nil {
		s.parts = append(s.parts, ContentPart{Kind: PartUnknown, Raw: raw})
		return
	}
	switch {
	case part.FunctionCall != nil:
		s.parts = append(s.parts, ContentPart{
			Kind:       PartToolCall,
			ToolName:   part.FunctionCall.Name,
			ToolCallID: part.FunctionCall.ID,
			Args:       part.FunctionCall.Args,
			Raw:        raw,
		})
	case part.FileData != nil:
		s.parts = append(s.parts, ContentPart{
			Kind:     PartFile,
			FileID:   part.FileData.FileURI,
			MIMEType: part.FileData.MIMEType,
			Raw:      raw,
		})
	case part.Thought && part.Text != "":
		s.parts = append(s.parts, ContentPart{Kind: PartReasoning, Text: part.Text, Raw: raw})
	case part.Thought:
		// A thought part stripped of its text by the provider.
		s.parts = append(s.parts, ContentPart{Kind: PartRedactedReasoning, Raw: raw})
	case part.Text != "":
		s.queue = append(s.queue, part.Text)
		s.appendText(part.Text)
	default:
		s.parts = append(s.parts, ContentPart{Kind: PartUnknown, Raw: raw})
	}
}

// appendText extends the trailing text part or starts a new one, so
// consecutive text deltas collapse into a single text part of the
// final message.
func (s *sseStream) appendText(delta string) {
	if n := len(s.parts); n > 0 && s.parts[n-1].Kind == PartText {
		s.parts[n-1].Text += delta
		return
	}
	s.parts = append(s.parts, ContentPart{Kind: PartText, Text: delta})
}
