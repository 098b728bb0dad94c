package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testConfig(baseURL string) Config {
	return Config{
		Provider: "test",
		BaseURL:  baseURL,
		Model:    "test-model",
		APIKey:   "sk-test",
		Timeout:  5 * time.Second,
	}
}

func sseHandler(t *testing.T, lines []string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	}
}

func chunk(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`, content)
}

func TestStreamFragmentsInOrder(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		chunk("He"),
		chunk("llo"),
		chunk(" world"),
		"data: [DONE]",
	}))
	defer srv.Close()

	var got []string
	err := NewClient(testConfig(srv.URL)).Stream(context.Background(), "p", func(s string) {
		got = append(got, s)
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if strings.Join(got, "") != "Hello world" {
		t.Fatalf("fragments = %q", got)
	}
}

func TestStreamStopsAtDone(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		chunk("ok"),
		"data: [DONE]",
		chunk("never"),
	}))
	defer srv.Close()

	var got []string
	err := NewClient(testConfig(srv.URL)).Stream(context.Background(), "p", func(s string) {
		got = append(got, s)
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(got) != 1 || got[0] != "ok" {
		t.Fatalf("fragments = %q, want [ok]", got)
	}
}

func TestStreamHonorsFinishReason(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		chunk("done"),
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
	}))
	defer srv.Close()

	var got []string
	err := NewClient(testConfig(srv.URL)).Stream(context.Background(), "p", func(s string) {
		got = append(got, s)
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(got) != 1 || got[0] != "done" {
		t.Fatalf("fragments = %q", got)
	}
}

func TestStreamSkipsCommentsAndBlank(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		": keep-alive",
		chunk("x"),
		"data: [DONE]",
	}))
	defer srv.Close()

	var got []string
	if err := NewClient(testConfig(srv.URL)).Stream(context.Background(), "p", func(s string) {
		got = append(got, s)
	}); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("fragments = %q", got)
	}
}

func TestStreamCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunk("first")+"\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	err := NewClient(testConfig(srv.URL)).Stream(ctx, "p", func(s string) {
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Stream = %v, want context.Canceled", err)
	}
}

func TestStreamAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewClient(testConfig(srv.URL)).Stream(context.Background(), "p", func(string) {
		t.Error("fragment after auth failure")
	})
	if CategoryOf(err) != CategoryAuth {
		t.Fatalf("category = %v (%v), want auth", CategoryOf(err), err)
	}
}

func TestStreamTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient(testConfig(srv.URL)).Stream(context.Background(), "p", func(string) {})
	if CategoryOf(err) != CategoryTransport {
		t.Fatalf("category = %v (%v), want transport", CategoryOf(err), err)
	}
}

func TestStreamValidatesBeforeDialing(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.APIKey = ""
	err := NewClient(cfg).Stream(context.Background(), "p", func(string) {})
	if CategoryOf(err) != CategoryConfig {
		t.Fatalf("category = %v (%v), want configuration", CategoryOf(err), err)
	}
	if called {
		t.Fatal("request was sent despite invalid config")
	}
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	got, err := NewClient(testConfig(srv.URL)).Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "ok" {
		t.Fatalf("Complete = %q", got)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	if _, err := NewClient(testConfig(srv.URL)).Complete(context.Background(), "p"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestApplyPreset(t *testing.T) {
	cfg := Config{Provider: "deepseek", APIKey: "k"}.ApplyPreset()
	if cfg.BaseURL != "https://api.deepseek.com/v1" || cfg.Model != "deepseek-chat" {
		t.Fatalf("preset not applied: %+v", cfg)
	}

	cfg = Config{Provider: "deepseek", BaseURL: "http://local", Model: "m"}.ApplyPreset()
	if cfg.BaseURL != "http://local" || cfg.Model != "m" {
		t.Fatalf("explicit values overridden: %+v", cfg)
	}
}

func TestCategoryOfDefaultsToTransport(t *testing.T) {
	if got := CategoryOf(errors.New("plain")); got != CategoryTransport {
		t.Fatalf("CategoryOf = %v", got)
	}
}
