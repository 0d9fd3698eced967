package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	to, text string
	calls    int
}

func (r *recordingSender) SendText(_ context.Context, to, text string) error {
	r.to, r.text = to, text
	r.calls++
	return nil
}

func TestRouterDispatchesByChannel(t *testing.T) {
	wa := &recordingSender{}
	sms := &recordingSender{}
	router := NewRouter(wa, sms, nil)

	require.NoError(t, router.Send(context.Background(), "whatsapp", "+15550001111", "hi"))
	assert.Equal(t, 1, wa.calls)
	assert.Equal(t, 0, sms.calls)

	require.NoError(t, router.Send(context.Background(), "sms", "+15550001111", "hi"))
	assert.Equal(t, 1, sms.calls)
}

func TestRouterRejectsUnknownChannel(t *testing.T) {
	router := NewRouter(&recordingSender{}, nil, nil)

	err := router.Send(context.Background(), "carrier-pigeon", "+15550001111", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sender for channel")

	err = router.Send(context.Background(), "sms", "+15550001111", "hi")
	require.Error(t, err, "sms without a configured sender is unknown")
}

func TestWhatsAppSenderPostsGraphPayload(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.xyz"}]}`))
	}))
	defer srv.Close()

	sender := NewWhatsAppSender("token123", "10987654321", nil).WithBaseURL(srv.URL)
	require.NoError(t, sender.SendText(context.Background(), "+15550001111", "See you tomorrow!"))

	assert.Equal(t, "/10987654321/messages", gotPath)
	assert.Equal(t, "Bearer token123", gotAuth)
	assert.Equal(t, "whatsapp", gotBody["messaging_product"])
	assert.Equal(t, "15550001111", gotBody["to"], "plus sign is stripped for the Graph API")
	text, ok := gotBody["text"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "See you tomorrow!", text["body"])
}

func TestWhatsAppSenderValidatesInput(t *testing.T) {
	sender := NewWhatsAppSender("", "", nil)
	assert.Error(t, sender.SendText(context.Background(), "+15550001111", "hi"))

	sender = NewWhatsAppSender("token", "123", nil)
	assert.Error(t, sender.SendText(context.Background(), "", "hi"))
	assert.Error(t, sender.SendText(context.Background(), "+15550001111", "   "))
}

func TestTwilioSenderPostsForm(t *testing.T) {
	var gotPath string
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer srv.Close()

	sender := NewTwilioSender("AC123", "secret", "+15550009999", nil).WithBaseURL(srv.URL)
	require.NoError(t, sender.SendText(context.Background(), "+15550001111", "Reminder: tomorrow at 3 PM"))

	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "+15550001111", gotForm["To"][0])
	assert.Equal(t, "+15550009999", gotForm["From"][0])
	assert.Equal(t, "Reminder: tomorrow at 3 PM", gotForm["Body"][0])
}

func TestTwilioSenderDoesNotRetryClientErrors(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' phone number","status":400}`))
	}))
	defer srv.Close()

	sender := NewTwilioSender("AC123", "secret", "+15550009999", nil).WithBaseURL(srv.URL)
	err := sender.SendText(context.Background(), "not-a-number", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code 21211")
	assert.Equal(t, 1, hits)
}
