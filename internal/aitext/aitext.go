// Package aitext generates human-readable alert text by calling an external
// text generation service via HTTP POST.
package aitext

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"climate-monitor/internal/events"
)

// DefaultTimeout bounds a single generation call. Alert creation must never
// stall behind a slow model.
const DefaultTimeout = 5 * time.Second

// maxResponseBytes caps how much of the service response we read.
const maxResponseBytes = 64 * 1024

// Client calls the text generation service.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a generation client for the given endpoint. apiKey may be
// empty when the service is unauthenticated.
func NewClient(endpoint, apiKey string, timeout time.Duration) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Request is the JSON body sent to the generation service.
type Request struct {
	Prompt   string `json:"prompt"`
	MaxWords int    `json:"max_words"`
}

// Response is the JSON body returned by the generation service.
type Response struct {
	Text string `json:"text"`
}

// Generate produces alert text for the candidate. Any failure returns an
// error so the caller can fall back to the template message.
func (c *Client) Generate(ctx context.Context, candidate events.AlertCandidate, schoolName, location string, temperature, humidity *float64) (string, error) {
	prompt := BuildPrompt(candidate, schoolName, location, temperature, humidity)

	body, err := json.Marshal(Request{Prompt: prompt, MaxWords: 60})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call generation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("generation service returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}

	var genResp Response
	if err := json.Unmarshal(data, &genResp); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}

	text := strings.TrimSpace(genResp.Text)
	if text == "" {
		return "", fmt.Errorf("generation service returned empty text")
	}

	return text, nil
}

// BuildPrompt renders the instruction sent to the generation service.
func BuildPrompt(candidate events.AlertCandidate, schoolName, location string, temperature, humidity *float64) string {
	var sb strings.Builder

	sb.WriteString("Write a short, clear alert message for school staff. ")
	fmt.Fprintf(&sb, "Condition: %s, severity %s. ", candidate.Kind, candidate.Severity)
	if schoolName != "" {
		fmt.Fprintf(&sb, "School: %s. ", schoolName)
	}
	if location != "" {
		fmt.Fprintf(&sb, "Location: %s. ", location)
	}
	if temperature != nil {
		fmt.Fprintf(&sb, "Temperature: %.1f°C. ", *temperature)
	}
	if humidity != nil {
		fmt.Fprintf(&sb, "Humidity: %.1f%%. ", *humidity)
	}
	sb.WriteString("Mention what staff should do. No markdown.")

	return sb.String()
}
