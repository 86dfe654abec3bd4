// Package completions issues chat-completion calls either directly to an
// upstream endpoint or through the relay.
package completions

import (
	"aichat-relay/internal/models"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Call is everything needed for one outbound completion request.
type Call struct {
	Endpoint string
	APIKey   string
	Model    string
	Messages []models.ChatMessage
}

// Sender performs one completion call.
type Sender interface {
	Send(ctx context.Context, call Call) (*models.CompletionResponse, error)
}

// APIError is returned when the server answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	details := e.Body
	if details == "" {
		details = "No details"
	}
	return fmt.Sprintf("API Error: %d - %s", e.StatusCode, details)
}

// TransportError is returned when the server could not be reached at all.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Failed to fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewHTTPClient returns the client used for completion calls. It sets no
// overall Timeout; only connection setup is bounded.
func NewHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = 10 * time.Second
	return &http.Client{Transport: transport}
}

// DirectSender calls the upstream endpoint itself, attaching the credential.
type DirectSender struct {
	HTTPClient *http.Client
}

func (d *DirectSender) Send(ctx context.Context, call Call) (*models.CompletionResponse, error) {
	body := models.CompletionRequest{
		Model:               call.Model,
		Messages:            call.Messages,
		MaxCompletionTokens: models.DefaultMaxCompletionTokens,
		Temperature:         models.DefaultTemperature,
	}
	headers := map[string]string{"Authorization": "Bearer " + call.APIKey}
	return postJSON(ctx, d.HTTPClient, call.Endpoint, headers, body)
}

// RelaySender posts the whole call, credential included, to the relay.
// It sends no Authorization header of its own.
type RelaySender struct {
	HTTPClient *http.Client
	RelayURL   string
}

func (r *RelaySender) Send(ctx context.Context, call Call) (*models.CompletionResponse, error) {
	messages, err := json.Marshal(call.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal messages: %w", err)
	}

	maxTokens := models.DefaultMaxCompletionTokens
	temperature := models.DefaultTemperature
	body := models.RelayRequest{
		Endpoint:            call.Endpoint,
		APIKey:              call.APIKey,
		Model:               call.Model,
		Messages:            messages,
		MaxCompletionTokens: &maxTokens,
		Temperature:         &temperature,
	}
	return postJSON(ctx, r.HTTPClient, r.RelayURL, nil, body)
}

// postJSON sends payload and decodes a 2xx JSON reply.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) (*models.CompletionResponse, error) {
	if client == nil {
		client = http.DefaultClient
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var out models.CompletionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
