package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFormatPhoneNumber(t *testing.T) {
	assert.Equal(t, "+919876543210", FormatPhoneNumber("98765 43210", "91"))
	assert.Equal(t, "+919876543210", FormatPhoneNumber("919876543210", "91"))
	assert.Equal(t, "+14155550100", FormatPhoneNumber("+1 (415) 555-0100", "91"))
}

func TestSMSServiceSend(t *testing.T) {
	var got struct {
		path, user, pass, to, from, body string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got.path = r.URL.Path
		got.user, got.pass, _ = r.BasicAuth()
		got.to = r.FormValue("To")
		got.from = r.FormValue("From")
		got.body = r.FormValue("Body")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer srv.Close()

	sms := NewSMSService(SMSConfig{
		BaseURL:    srv.URL,
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+15005550006",
	}, zap.NewNop())

	require.NoError(t, sms.Send(context.Background(), "9876543210", "hello"))
	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", got.path)
	assert.Equal(t, "AC123", got.user)
	assert.Equal(t, "token", got.pass)
	assert.Equal(t, "+919876543210", got.to)
	assert.Equal(t, "+15005550006", got.from)
	assert.Equal(t, "hello", got.body)
}

func TestSMSServiceSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"The 'To' number is not valid.","status":400}`))
	}))
	defer srv.Close()

	sms := NewSMSService(SMSConfig{BaseURL: srv.URL, AccountSID: "AC1", AuthToken: "t", FromNumber: "+1"}, zap.NewNop())
	err := sms.Send(context.Background(), "123", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid phone number")
}

func TestSMSServiceNotConfigured(t *testing.T) {
	sms := NewSMSService(SMSConfig{}, zap.NewNop())
	assert.ErrorIs(t, sms.Send(context.Background(), "9876543210", "hi"), ErrSMSNotConfigured)
}
