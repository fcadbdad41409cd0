package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	stripeName          = "stripe"
	stripeIntentPath    = "/v1/payment_intents"
	stripeSignTolerance = 5 * time.Minute
)

type StripeConf struct {
	ApiBase        string `json:",default=https://api.stripe.com"`
	SecretKey      string
	WebhookSecret  string
	PublishableKey string
	TimeoutSeconds int `json:",default=10"`
}

type stripeGateway struct {
	conf   StripeConf
	client *http.Client
	now    func() time.Time
}

func NewStripe(conf StripeConf) Gateway {
	return &stripeGateway{
		conf:   conf,
		client: &http.Client{Timeout: time.Duration(conf.TimeoutSeconds) * time.Second},
		now:    time.Now,
	}
}

func (g *stripeGateway) Name() string { return stripeName }

func (g *stripeGateway) CreateIntent(ctx context.Context, order OrderInfo) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(order.AmountCents, 10))
	form.Set("currency", strings.ToLower(order.Currency))
	form.Set("metadata[order_id]", strconv.FormatInt(order.OrderId, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.conf.ApiBase+stripeIntentPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.conf.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stripe: create intent rejected: status %d body %s", resp.StatusCode, body)
	}

	var out struct {
		Id           string `json:"id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("stripe: decode intent: %w", err)
	}
	if out.Id == "" {
		return nil, fmt.Errorf("stripe: intent response missing id")
	}

	return &Intent{
		Reference: out.Id,
		ClientParams: map[string]string{
			"provider":        stripeName,
			"client_secret":   out.ClientSecret,
			"publishable_key": g.conf.PublishableKey,
		},
	}, nil
}

// VerifyCallback checks the Stripe-Signature header (t=timestamp,v1=hmac of
// "timestamp.payload") and normalizes the event. Stale timestamps are
// rejected to bound replays from captured payloads.
func (g *stripeGateway) VerifyCallback(payload []byte, signature string) (*Event, error) {
	ts, sigs, err := parseStripeSignature(signature)
	if err != nil {
		return nil, err
	}

	skew := g.now().Sub(time.Unix(ts, 0))
	if skew > stripeSignTolerance || skew < -stripeSignTolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, []byte(g.conf.WebhookSecret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	valid := false
	for _, sig := range sigs {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrSignatureInvalid
	}

	var evt struct {
		Id   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				Id               string `json:"id"`
				LastPaymentError struct {
					Message string `json:"message"`
				} `json:"last_payment_error"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("stripe: decode event: %w", err)
	}

	normalized := &Event{
		Reference: evt.Data.Object.Id,
		EventId:   evt.Id,
	}
	switch evt.Type {
	case "payment_intent.succeeded":
		normalized.Type = EventSucceeded
	case "payment_intent.payment_failed":
		normalized.Type = EventFailed
		normalized.Reason = evt.Data.Object.LastPaymentError.Message
	case "payment_intent.canceled":
		normalized.Type = EventCancelled
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, evt.Type)
	}
	if normalized.Reference == "" || normalized.EventId == "" {
		return nil, fmt.Errorf("stripe: event missing reference or id")
	}
	return normalized, nil
}

func parseStripeSignature(header string) (int64, []string, error) {
	var (
		ts   int64
		sigs []string
	)
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			parsed, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", ErrSignatureInvalid)
			}
			ts = parsed
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return 0, nil, fmt.Errorf("%w: malformed header", ErrSignatureInvalid)
	}
	return ts, sigs, nil
}
