package services

import (
	"aichat-relay/internal/models"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Custom errors for the relay
var (
	ErrMissingParameter          = errors.New("missing required parameters: endpoint or apiKey")
	ErrUpstreamUnreachable       = errors.New("upstream unreachable")
	ErrMalformedUpstreamResponse = errors.New("malformed upstream response")
)

// UpstreamResponse is what the upstream endpoint answered, kept byte-for-byte.
type UpstreamResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports whether the upstream status is 2xx.
func (u *UpstreamResponse) OK() bool {
	return u.StatusCode >= 200 && u.StatusCode <= 299
}

// RelayService forwards one chat request to the endpoint named in it.
// It holds no per-request state; the http.Client is the only shared resource.
type RelayService struct {
	httpClient *http.Client
}

// NewRelayService creates a new RelayService. A nil client means http.DefaultClient.
func NewRelayService(httpClient *http.Client) *RelayService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RelayService{httpClient: httpClient}
}

// BuildUpstreamRequest applies defaults to the optional fields of req.
func BuildUpstreamRequest(req models.RelayRequest) models.UpstreamRequest {
	out := models.UpstreamRequest{
		Model:               req.Model,
		Messages:            req.Messages,
		MaxCompletionTokens: models.DefaultMaxCompletionTokens,
		Temperature:         models.DefaultTemperature,
	}
	if out.Model == "" {
		out.Model = models.DefaultModel
	}
	if len(out.Messages) == 0 || bytes.Equal(bytes.TrimSpace(out.Messages), []byte("null")) {
		out.Messages = json.RawMessage("[]")
	}
	if req.MaxCompletionTokens != nil {
		out.MaxCompletionTokens = *req.MaxCompletionTokens
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	return out
}

// Forward validates req, performs exactly one upstream POST, and returns the
// upstream status and body unchanged. Non-2xx upstream answers are not errors.
func (s *RelayService) Forward(ctx context.Context, req models.RelayRequest) (*UpstreamResponse, error) {
	if req.Endpoint == "" || req.APIKey == "" {
		return nil, ErrMissingParameter
	}

	forwardID := uuid.New()
	start := time.Now()
	log.Printf("[RelayService] Forward %s: proxying request to %s", forwardID, req.Endpoint)

	payload, err := json.Marshal(BuildUpstreamRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upstream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		log.Printf("ERROR [RelayService] Forward %s: upstream call failed: %v", forwardID, err)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("ERROR [RelayService] Forward %s: failed to read upstream body: %v", forwardID, err)
		return nil, fmt.Errorf("%w: %v", ErrMalformedUpstreamResponse, err)
	}

	result := &UpstreamResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}

	if !result.OK() {
		log.Printf("WARN [RelayService] Forward %s: upstream returned %d in %s", forwardID, resp.StatusCode, time.Since(start))
		return result, nil
	}

	if !json.Valid(body) {
		log.Printf("ERROR [RelayService] Forward %s: upstream returned %d with a non-JSON body", forwardID, resp.StatusCode)
		return nil, fmt.Errorf("%w: body is not valid JSON", ErrMalformedUpstreamResponse)
	}

	log.Printf("[RelayService] Forward %s: upstream returned %d in %s", forwardID, resp.StatusCode, time.Since(start))
	return result, nil
}
