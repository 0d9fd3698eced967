package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatHandlerValidatesRequests(t *testing.T) {
	h := NewChatHandler(nil, nil)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad json", "{not json", "invalid JSON body"},
		{"missing session", `{"text":"hi"}`, "session_id is required"},
		{"missing text", `{"session_id":"web-1"}`, "text is required"},
		{"blank text", `{"session_id":"web-1","text":"   "}`, "text is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.Handle(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestWhatsAppVerifyChallenge(t *testing.T) {
	h := NewWhatsAppWebhookHandler("sesame", nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=sesame&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())
}

func TestWhatsAppVerifyRejectsBadToken(t *testing.T) {
	h := NewWhatsAppWebhookHandler("sesame", nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWhatsAppReceiveIgnoresNonTextMessages(t *testing.T) {
	// The nil engine would panic if a non-text message reached handleMessage.
	h := NewWhatsAppWebhookHandler("sesame", nil, nil, nil)

	payload := `{"entry":[{"changes":[{"value":{"messages":[
		{"from":"15550001111","id":"wamid.1","type":"image"},
		{"from":"","id":"wamid.2","type":"text","text":{"body":"hi"}}
	]}}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Receive(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWhatsAppReceiveRejectsMalformedBody(t *testing.T) {
	h := NewWhatsAppWebhookHandler("sesame", nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	h.Receive(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
