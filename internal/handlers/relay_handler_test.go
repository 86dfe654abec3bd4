package handlers

import (
	"aichat-relay/internal/models"
	"aichat-relay/internal/services"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubForwarder struct {
	resp  *services.UpstreamResponse
	err   error
	calls int
}

func (s *stubForwarder) Forward(ctx context.Context, req models.RelayRequest) (*services.UpstreamResponse, error) {
	s.calls++
	return s.resp, s.err
}

func postChat(t *testing.T, h *RelayHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	h := NewRelayHandler(&stubForwarder{})
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 7_000_000, time.FixedZone("X", 3600)) }

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.HealthResponse{
		Status:    "ok",
		Message:   HealthMessage,
		Timestamp: "2024-05-01T11:00:00.007Z",
	}, got)
}

func TestHandleChat_ForwardsThroughRelayService(t *testing.T) {
	var upstreamBody models.UpstreamRequest
	var auth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&upstreamBody)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"hi there"}}]}`)
	}))
	defer upstream.Close()

	h := NewRelayHandler(services.NewRelayService(upstream.Client()))
	rec := postChat(t, h, fmt.Sprintf(`{"endpoint":%q,"apiKey":"k","messages":[{"role":"user","content":"hi"}]}`, upstream.URL))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"choices":[{"message":{"role":"assistant","content":"hi there"}}]}`, rec.Body.String())
	assert.Equal(t, "Bearer k", auth)
	assert.Equal(t, models.DefaultModel, upstreamBody.Model)
	assert.Equal(t, models.DefaultMaxCompletionTokens, upstreamBody.MaxCompletionTokens)
	assert.InDelta(t, models.DefaultTemperature, upstreamBody.Temperature, 1e-9)
}

func TestHandleChat_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		fwd        *stubForwarder
		wantStatus int
		wantBody   models.ErrorResponse
		wantCalls  int
	}{
		{
			name:       "invalid json",
			body:       `{"endpoint":`,
			fwd:        &stubForwarder{},
			wantStatus: http.StatusBadRequest,
			wantBody:   models.ErrorResponse{Error: InvalidBodyMessage},
		},
		{
			name:       "missing parameters",
			body:       `{"messages":[]}`,
			fwd:        &stubForwarder{err: fmt.Errorf("validate: %w", services.ErrMissingParameter)},
			wantStatus: http.StatusBadRequest,
			wantBody:   models.ErrorResponse{Error: MissingParamsMessage},
			wantCalls:  1,
		},
		{
			name:       "unreachable upstream",
			body:       `{"endpoint":"http://x","apiKey":"k"}`,
			fwd:        &stubForwarder{err: fmt.Errorf("%w: dial tcp: refused", services.ErrUpstreamUnreachable)},
			wantStatus: http.StatusInternalServerError,
			wantBody:   models.ErrorResponse{Error: ProxyErrorMessage, Details: "upstream unreachable: dial tcp: refused"},
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postChat(t, NewRelayHandler(tt.fwd), tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got models.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got)
			assert.Equal(t, tt.wantCalls, tt.fwd.calls)
		})
	}
}

func TestHandleChat_UpstreamErrorPassthrough(t *testing.T) {
	fwd := &stubForwarder{resp: &services.UpstreamResponse{
		StatusCode:  http.StatusTooManyRequests,
		ContentType: "text/plain",
		Body:        []byte("slow down"),
	}}

	rec := postChat(t, NewRelayHandler(fwd), `{"endpoint":"http://x","apiKey":"k"}`)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "slow down", rec.Body.String())
}

func TestHandleChat_BodyTooLarge(t *testing.T) {
	fwd := &stubForwarder{}
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"endpoint":"`+strings.Repeat("a", 64)+`"}`))
	rec := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	NewRelayHandler(fwd).HandleChat(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, fwd.calls)
}

var _ Forwarder = (*services.RelayService)(nil)
