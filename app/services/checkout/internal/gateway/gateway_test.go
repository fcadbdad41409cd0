package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewStripe(StripeConf{TimeoutSeconds: 1}))

	g, err := r.Get("stripe")
	require.NoError(t, err)
	assert.Equal(t, "stripe", g.Name())

	_, err = r.Get("paypal")
	assert.Error(t, err)
}

func TestStripeCreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_abc", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "12800", r.FormValue("amount"))
		assert.Equal(t, "usd", r.FormValue("currency"))
		fmt.Fprint(w, `{"id":"pi_123","client_secret":"pi_123_secret_xyz"}`)
	}))
	defer srv.Close()

	g := NewStripe(StripeConf{ApiBase: srv.URL, SecretKey: "sk_test_abc", TimeoutSeconds: 2})
	intent, err := g.CreateIntent(context.Background(), OrderInfo{OrderId: 42, AmountCents: 12800, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.Reference)
	assert.Equal(t, "pi_123_secret_xyz", intent.ClientParams["client_secret"])
}

func TestStripeCreateIntentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewStripe(StripeConf{ApiBase: srv.URL, TimeoutSeconds: 2})
	_, err := g.CreateIntent(context.Background(), OrderInfo{OrderId: 1, AmountCents: 100, Currency: "usd"})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestStripeCreateIntentUnreachable(t *testing.T) {
	g := NewStripe(StripeConf{ApiBase: "http://127.0.0.1:1", TimeoutSeconds: 1})
	_, err := g.CreateIntent(context.Background(), OrderInfo{OrderId: 1, AmountCents: 100, Currency: "usd"})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func stripeSign(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeVerifyCallback(t *testing.T) {
	g := NewStripe(StripeConf{WebhookSecret: "whsec_test", TimeoutSeconds: 1}).(*stripeGateway)
	now := time.Now()
	g.now = func() time.Time { return now }

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)

	evt, err := g.VerifyCallback(payload, stripeSign("whsec_test", now.Unix(), payload))
	require.NoError(t, err)
	assert.Equal(t, EventSucceeded, evt.Type)
	assert.Equal(t, "pi_123", evt.Reference)
	assert.Equal(t, "evt_1", evt.EventId)
}

func TestStripeVerifyCallbackFailedEvent(t *testing.T) {
	g := NewStripe(StripeConf{WebhookSecret: "whsec_test", TimeoutSeconds: 1}).(*stripeGateway)
	now := time.Now()
	g.now = func() time.Time { return now }

	payload := []byte(`{"id":"evt_2","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_123","last_payment_error":{"message":"card declined"}}}}`)

	evt, err := g.VerifyCallback(payload, stripeSign("whsec_test", now.Unix(), payload))
	require.NoError(t, err)
	assert.Equal(t, EventFailed, evt.Type)
	assert.Equal(t, "card declined", evt.Reason)
}

func TestStripeVerifyCallbackBadSignature(t *testing.T) {
	g := NewStripe(StripeConf{WebhookSecret: "whsec_test", TimeoutSeconds: 1}).(*stripeGateway)
	now := time.Now()
	g.now = func() time.Time { return now }

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)

	_, err := g.VerifyCallback(payload, stripeSign("whsec_wrong", now.Unix(), payload))
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	_, err = g.VerifyCallback(payload, "garbage")
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestStripeVerifyCallbackStaleTimestamp(t *testing.T) {
	g := NewStripe(StripeConf{WebhookSecret: "whsec_test", TimeoutSeconds: 1}).(*stripeGateway)
	now := time.Now()
	g.now = func() time.Time { return now }

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)
	stale := now.Add(-10 * time.Minute).Unix()

	_, err := g.VerifyCallback(payload, stripeSign("whsec_test", stale, payload))
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestStripeVerifyCallbackUnknownType(t *testing.T) {
	g := NewStripe(StripeConf{WebhookSecret: "whsec_test", TimeoutSeconds: 1}).(*stripeGateway)
	now := time.Now()
	g.now = func() time.Time { return now }

	payload := []byte(`{"id":"evt_1","type":"charge.updated","data":{"object":{"id":"pi_123"}}}`)

	_, err := g.VerifyCallback(payload, stripeSign("whsec_test", now.Unix(), payload))
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func razorpaySign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayCreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "rzp_secret", pass)
		fmt.Fprint(w, `{"id":"order_ABC123"}`)
	}))
	defer srv.Close()

	g := NewRazorpay(RazorpayConf{ApiBase: srv.URL, KeyId: "rzp_test_key", KeySecret: "rzp_secret", TimeoutSeconds: 2})
	intent, err := g.CreateIntent(context.Background(), OrderInfo{OrderId: 7, AmountCents: 50000, Currency: "inr"})
	require.NoError(t, err)
	assert.Equal(t, "order_ABC123", intent.Reference)
	assert.Equal(t, "rzp_test_key", intent.ClientParams["key_id"])
}

func TestRazorpayVerifyCallback(t *testing.T) {
	g := NewRazorpay(RazorpayConf{WebhookSecret: "rzp_whsec"})

	payload := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_ABC123"}}}}`)

	evt, err := g.VerifyCallback(payload, razorpaySign("rzp_whsec", payload))
	require.NoError(t, err)
	assert.Equal(t, EventSucceeded, evt.Type)
	assert.Equal(t, "order_ABC123", evt.Reference)
	assert.Equal(t, "pay_9:payment.captured", evt.EventId)

	_, err = g.VerifyCallback(payload, razorpaySign("other", payload))
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestRazorpayVerifyCallbackFailedEvent(t *testing.T) {
	g := NewRazorpay(RazorpayConf{WebhookSecret: "rzp_whsec"})

	payload := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_ABC123","error_description":"insufficient funds"}}}}`)

	evt, err := g.VerifyCallback(payload, razorpaySign("rzp_whsec", payload))
	require.NoError(t, err)
	assert.Equal(t, EventFailed, evt.Type)
	assert.Equal(t, "insufficient funds", evt.Reason)
}
