package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truckwell/dispatch-voice-service/internal/services/webhook"
)

type fakeProcessor struct {
	err       error
	lastEvent webhook.Event
	calls     int
}

func (f *fakeProcessor) Process(ctx context.Context, event webhook.Event) error {
	f.calls++
	f.lastEvent = event
	return f.err
}

func postWebhook(t *testing.T, h *WebhookHandler, body string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	router := mux.NewRouter()
	h.SetupRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/retell", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func TestHandleRetellWebhook_Success(t *testing.T) {
	processor := &fakeProcessor{}
	h := NewWebhookHandler(processor, 50)

	rec, body := postWebhook(t, h, `{"event":"call_started","call_id":"call_1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, 1, processor.calls)
	assert.Equal(t, "call_started", processor.lastEvent.Event)
	assert.Equal(t, "call_1", processor.lastEvent.CallID)
}

func TestHandleRetellWebhook_ProcessingFailureStillReturns200(t *testing.T) {
	processor := &fakeProcessor{err: errors.New("failed to fetch call details")}
	h := NewWebhookHandler(processor, 50)

	rec, body := postWebhook(t, h, `{"event":"call_ended","call_id":"call_1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "failed to fetch call details")
}

func TestHandleRetellWebhook_InvalidPayloadStillReturns200(t *testing.T) {
	processor := &fakeProcessor{}
	h := NewWebhookHandler(processor, 50)

	rec, body := postWebhook(t, h, `{not json`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "invalid payload", body["message"])
	assert.Zero(t, processor.calls)
}

func TestHandleRetellWebhook_PassesAnalysisPayloadThrough(t *testing.T) {
	processor := &fakeProcessor{}
	h := NewWebhookHandler(processor, 50)

	_, body := postWebhook(t, h, `{"event":"call_analyzed","call_id":"call_1","call_analysis":{"user_sentiment":"positive"}}`)

	assert.Equal(t, "success", body["status"])
	assert.JSONEq(t, `{"user_sentiment":"positive"}`, string(processor.lastEvent.CallAnalysis))
}
