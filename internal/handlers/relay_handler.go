package handlers

import (
	"aichat-relay/internal/models"
	"aichat-relay/internal/services"
	"aichat-relay/pkg/httputil"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"
)

// Messages returned by the relay's own (non-forwarded) responses.
const (
	HealthMessage        = "AI Chat Proxy Server Running"
	MissingParamsMessage = "Missing required parameters: endpoint or apiKey"
	InvalidBodyMessage   = "Invalid request body"
	ProxyErrorMessage    = "Proxy server error"
	BodyTooLargeMessage  = "Request body too large"
	isoMillisTimeLayout  = "2006-01-02T15:04:05.000Z07:00"
)

// Forwarder is implemented by services.RelayService.
type Forwarder interface {
	Forward(ctx context.Context, req models.RelayRequest) (*services.UpstreamResponse, error)
}

// RelayHandler handles the relay's HTTP endpoints.
type RelayHandler struct {
	forwarder Forwarder
	now       func() time.Time
}

// NewRelayHandler creates a new RelayHandler.
func NewRelayHandler(forwarder Forwarder) *RelayHandler {
	return &RelayHandler{forwarder: forwarder, now: time.Now}
}

// HandleHealth answers the root health check.
func (h *RelayHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Message:   HealthMessage,
		Timestamp: h.now().UTC().Format(isoMillisTimeLayout),
	})
}

// HandleChat forwards one chat request upstream and relays the answer verbatim.
func (h *RelayHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req models.RelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("WARN [RelayHandler] HandleChat: undecodable body: %v", err)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, BodyTooLargeMessage)
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, InvalidBodyMessage)
		return
	}

	resp, err := h.forwarder.Forward(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrMissingParameter) {
			httputil.RespondError(w, http.StatusBadRequest, MissingParamsMessage)
			return
		}
		log.Printf("ERROR [RelayHandler] HandleChat: proxy error: %v", err)
		httputil.RespondErrorDetails(w, http.StatusInternalServerError, ProxyErrorMessage, err.Error())
		return
	}

	if resp.OK() {
		// Success is always reported as 200, whatever 2xx upstream used.
		httputil.RespondRaw(w, http.StatusOK, "application/json", resp.Body)
		return
	}
	httputil.RespondRaw(w, resp.StatusCode, resp.ContentType, resp.Body)
}
