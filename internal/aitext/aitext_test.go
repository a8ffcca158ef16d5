package aitext

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"climate-monitor/internal/events"
)

func floatPtr(v float64) *float64 { return &v }

func candidate() events.AlertCandidate {
	return events.AlertCandidate{
		SensorID: "sensor-1",
		Kind:     events.KindExtremeHeat,
		Severity: events.SeverityCritical,
	}
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient("", "", 0); err == nil {
		t.Error("NewClient with empty endpoint error = nil, want error")
	}

	c, err := NewClient("http://localhost:8080/generate", "key", 0)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.httpClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want default %v", c.httpClient.Timeout, DefaultTimeout)
	}
}

func TestGenerate_Success(t *testing.T) {
	var gotReq Request
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Response{Text: "Extreme heat in Room 12. Move students to a cooler space."})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "secret", time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	text, err := client.Generate(context.Background(), candidate(), "Northside Primary", "Room 12", floatPtr(36.5), floatPtr(72.0))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(text, "Extreme heat") {
		t.Errorf("Generate() = %q, want generated text", text)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	for _, fragment := range []string{"EXTREME_HEAT", "CRITICAL", "Northside Primary", "Room 12", "36.5", "72.0"} {
		if !strings.Contains(gotReq.Prompt, fragment) {
			t.Errorf("prompt %q missing %q", gotReq.Prompt, fragment)
		}
	}
	if gotReq.MaxWords != 60 {
		t.Errorf("MaxWords = %d, want 60", gotReq.MaxWords)
	}
}

func TestGenerate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, "", time.Second)
	if _, err := client.Generate(context.Background(), candidate(), "", "", nil, nil); err == nil {
		t.Error("Generate() error = nil, want error on 503")
	}
}

func TestGenerate_EmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Response{Text: "   "})
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, "", time.Second)
	if _, err := client.Generate(context.Background(), candidate(), "", "", nil, nil); err == nil {
		t.Error("Generate() error = nil, want error on empty text")
	}
}

func TestGenerate_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, "", time.Second)
	if _, err := client.Generate(context.Background(), candidate(), "", "", nil, nil); err == nil {
		t.Error("Generate() error = nil, want error on malformed JSON")
	}
}

func TestGenerate_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(Response{Text: "too late"})
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, "", 20*time.Millisecond)
	if _, err := client.Generate(context.Background(), candidate(), "", "", nil, nil); err == nil {
		t.Error("Generate() error = nil, want timeout error")
	}
}

func TestBuildPrompt_OmitsMissingFields(t *testing.T) {
	prompt := BuildPrompt(candidate(), "", "", nil, nil)
	for _, fragment := range []string{"School:", "Location:", "Temperature:", "Humidity:"} {
		if strings.Contains(prompt, fragment) {
			t.Errorf("prompt %q contains %q for missing field", prompt, fragment)
		}
	}
}
