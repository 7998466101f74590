package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSynthesizeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing or wrong auth header: %s", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("fake-audio-bytes"))
	}))
	defer server.Close()

	c := New(server.URL, "test-key")
	result, err := c.Synthesize(context.Background(), "hello there friend", "voice-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Audio) != "fake-audio-bytes" {
		t.Errorf("unexpected audio payload: %s", result.Audio)
	}
	if result.DurationMs <= 0 {
		t.Errorf("expected positive duration estimate, got %d", result.DurationMs)
	}
}

func TestSynthesizeErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	c := New(server.URL, "")
	_, err := c.Synthesize(context.Background(), "hello", "")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestEstimateDurationScalesWithWordCount(t *testing.T) {
	short := estimateDurationMs("one two three")
	long := estimateDurationMs("one two three four five six seven eight nine ten")
	if long <= short {
		t.Errorf("expected longer text to estimate a longer duration: %d vs %d", long, short)
	}
}
