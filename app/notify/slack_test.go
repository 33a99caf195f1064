package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSendDisabledWithoutWebhook(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	notifier := NewSlackNotifier("")
	notifier.SetClient(server.Client())
	notifier.Send(context.Background(), "hello")

	if called {
		t.Error("disabled notifier must not post")
	}
	if notifier.Enabled() {
		t.Error("expected Enabled() to be false")
	}
}

func TestSendPostsPayload(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	notifier.Send(context.Background(), "fallback text", section("*Bold Section*"))

	if payload["text"] != "fallback text" {
		t.Errorf("unexpected text %v", payload["text"])
	}
	blocks, ok := payload["blocks"].([]any)
	if !ok || len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %v", payload["blocks"])
	}
}

func TestPipelineCompletedMessage(t *testing.T) {
	var raw string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		raw = string(body)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	notifier.PipelineCompleted(context.Background(), "morning", 12, 10, 3, 95*time.Second)

	for _, want := range []string{"morning", "12", "10", "3 articles generated", "1m35s"} {
		if !strings.Contains(raw, want) {
			t.Errorf("payload missing %q: %s", want, raw)
		}
	}
}

func TestPipelineErrorTruncatesList(t *testing.T) {
	var raw string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		raw = string(body)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	errs := []string{"first", strings.Repeat("x", 200), "third", "fourth"}
	notifier.PipelineError(context.Background(), "scrape", errs)

	if strings.Contains(raw, "fourth") {
		t.Error("expected only the first three errors")
	}
	if strings.Contains(raw, strings.Repeat("x", 101)) {
		t.Error("expected long errors to be cut at 100 chars")
	}
}

func TestSendSurvivesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	// Must not panic or block.
	notifier.Send(context.Background(), "doomed message")
}
