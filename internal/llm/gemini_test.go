package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func sseHandler(lines []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "data: %s\n\n", line)
		}
	}
}

func drain(t *testing.T, stream Stream) []string {
	t.Helper()
	var fragments []string
	for stream.Next() {
		fragments = append(fragments, stream.Fragment())
	}
	return fragments
}

func newTestClient(endpoint string) *GeminiClient {
	return NewGeminiClient("test-api-key-123", endpoint, "", zap.NewNop().Sugar())
}

func TestNewGeminiClientBuildsEndpointFromModel(t *testing.T) {
	client := NewGeminiClient("k", "", "gemini-2.0-flash-001", zap.NewNop().Sugar())
	want := "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash-001:streamGenerateContent?alt=sse"
	if client.Endpoint != want {
		t.Fatalf("endpoint = %q, want %q", client.Endpoint, want)
	}
}

func TestStreamTextYieldsFragmentsInOrder(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{
		`{"candidates":[{"content":{"parts":[{"text":"Hello"}],"role":"model"},"index":0}]}`,
		`{"candidates":[{"content":{"parts":[{"text":", "},{"text":"world."}],"role":"model"},"finishReason":"STOP","index":0}],"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":5}}`,
	}))
	defer srv.Close()

	stream, err := newTestClient(srv.URL).StreamText(context.Background(), Request{UserText: "hi"})
	if err != nil {
		t.Fatalf("StreamText failed: %v", err)
	}
	fragments := drain(t, stream)
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}

	want := []string{"Hello", ", ", "world."}
	if len(fragments) != len(want) {
		t.Fatalf("fragments = %v, want %v", fragments, want)
	}
	for i := range want {
		if fragments[i] != want[i] {
			t.Fatalf("fragments = %v, want %v", fragments, want)
		}
	}

	final := stream.Final()
	if got := final.Text(); got != "Hello, world." {
		t.Fatalf("final text = %q", got)
	}
	if len(final.Parts) != 1 || final.Parts[0].Kind != PartText {
		t.Fatalf("expected one merged text part, got %+v", final.Parts)
	}
}

func TestStreamTextAssemblesNonTextParts(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{
		`{"candidates":[{"content":{"parts":[{"text":"Checking."}],"role":"model"}}]}`,
		`{"candidates":[{"content":{"parts":[{"functionCall":{"id":"call_1","name":"lookup_weather","args":{"city":"Oslo"}}}],"role":"model"}}]}`,
		`{"candidates":[{"content":{"parts":[{"thought":true,"text":"user asked about weather"}],"role":"model"}}]}`,
		`{"candidates":[{"content":{"parts":[{"thought":true}],"role":"model"}}]}`,
		`{"candidates":[{"content":{"parts":[{"fileData":{"mimeType":"image/png","fileUri":"https://files.example/img1"}}],"role":"model"}}]}`,
		`{"candidates":[{"content":{"parts":[{"shinyNewPart":true}],"role":"model"},"finishReason":"STOP"}]}`,
	}))
	defer srv.Close()

	stream, err := newTestClient(srv.URL).StreamText(context.Background(), Request{UserText: "weather?"})
	if err != nil {
		t.Fatalf("StreamText failed: %v", err)
	}
	fragments := drain(t, stream)
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("non-text parts leaked into fragments: %v", fragments)
	}

	nonText := stream.Final().NonText()
	if len(nonText) != 5 {
		t.Fatalf("expected 5 non-text parts, got %+v", nonText)
	}
	if nonText[0].Kind != PartToolCall || nonText[0].ToolName != "lookup_weather" || nonText[0].ToolCallID != "call_1" {
		t.Fatalf("unexpected tool-call part %+v", nonText[0])
	}
	if nonText[1].Kind != PartReasoning || nonText[1].Text != "user asked about weather" {
		t.Fatalf("unexpected reasoning part %+v", nonText[1])
	}
	if nonText[2].Kind != PartRedactedReasoning {
		t.Fatalf("unexpected redacted-reasoning part %+v", nonText[2])
	}
	if nonText[3].Kind != PartFile || nonText[3].FileID != "https://files.example/img1" || nonText[3].MIMEType != "image/png" {
		t.Fatalf("unexpected file part %+v", nonText[3])
	}
	if nonText[4].Kind != PartUnknown || len(nonText[4].Raw) == 0 {
		t.Fatalf("unexpected unknown part %+v", nonText[4])
	}
}

func TestStreamTextReportsTruncatedStream(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{
		`{"candidates":[{"content":{"parts":[{"text":"partial"}],"role":"model"}}]}`,
	}))
	defer srv.Close()

	stream, err := newTestClient(srv.URL).StreamText(context.Background(), Request{UserText: "hi"})
	if err != nil {
		t.Fatalf("StreamText failed: %v", err)
	}
	fragments := drain(t, stream)
	if len(fragments) != 1 {
		t.Fatalf("fragments = %v", fragments)
	}
	err = stream.Err()
	if err == nil {
		t.Fatal("expected an error for a stream without a finish reason")
	}
	if !strings.Contains(err.Error(), "finish reason") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestStreamTextReportsBlockedPrompt(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{
		`{"promptFeedback":{"blockReason":"SAFETY"}}`,
	}))
	defer srv.Close()

	stream, err := newTestClient(srv.URL).StreamText(context.Background(), Request{UserText: "hi"})
	if err != nil {
		t.Fatalf("StreamText failed: %v", err)
	}
	if fragments := drain(t, stream); len(fragments) != 0 {
		t.Fatalf("fragments = %v, want none", fragments)
	}
	err = stream.Err()
	if err == nil || !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("expected blocked-prompt error, got %v", err)
	}
}

func TestStreamTextCloseAbandonsStream(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{
		`{"candidates":[{"content":{"parts":[{"text":"one"}],"role":"model"}}]}`,
		`{"candidates":[{"content":{"parts":[{"text":"two"}],"role":"model"},"finishReason":"STOP"}]}`,
	}))
	defer srv.Close()

	stream, err := newTestClient(srv.URL).StreamText(context.Background(), Request{UserText: "hi"})
	if err != nil {
		t.Fatalf("StreamText failed: %v", err)
	}
	if !stream.Next() {
		t.Fatal("expected a first fragment")
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if stream.Next() {
		t.Fatal("Next returned true after Close")
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}

func TestStreamTextRejectsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).StreamText(context.Background(), Request{UserText: "hi"})
	if err == nil {
		t.Fatal("expected error for non-200 model response")
	}
}

func TestStreamTextRequiresAPIKey(t *testing.T) {
	client := NewGeminiClient("", "http://localhost:0", "", zap.NewNop().Sugar())
	if _, err := client.StreamText(context.Background(), Request{UserText: "hi"}); err == nil {
		t.Fatal("expected error without API key")
	}
}
