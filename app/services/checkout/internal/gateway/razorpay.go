package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	razorpayName      = "razorpay"
	razorpayOrderPath = "/v1/orders"
)

type RazorpayConf struct {
	ApiBase        string `json:",default=https://api.razorpay.com"`
	KeyId          string
	KeySecret      string
	WebhookSecret  string
	TimeoutSeconds int `json:",default=10"`
}

type razorpayGateway struct {
	conf   RazorpayConf
	client *http.Client
}

func NewRazorpay(conf RazorpayConf) Gateway {
	return &razorpayGateway{
		conf:   conf,
		client: &http.Client{Timeout: time.Duration(conf.TimeoutSeconds) * time.Second},
	}
}

func (g *razorpayGateway) Name() string { return razorpayName }

func (g *razorpayGateway) CreateIntent(ctx context.Context, order OrderInfo) (*Intent, error) {
	reqBody, err := json.Marshal(map[string]any{
		"amount":   order.AmountCents,
		"currency": strings.ToUpper(order.Currency),
		"receipt":  fmt.Sprintf("order_rcpt_%d", order.OrderId),
		"notes":    map[string]string{"order_id": fmt.Sprintf("%d", order.OrderId)},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.conf.ApiBase+razorpayOrderPath, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(g.conf.KeyId, g.conf.KeySecret)
	req.Header.Set("Content-Type", "application/json")

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
		return nil, fmt.Errorf("razorpay: create order rejected: status %d body %s", resp.StatusCode, body)
	}

	var out struct {
		Id string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("razorpay: decode order: %w", err)
	}
	if out.Id == "" {
		return nil, fmt.Errorf("razorpay: order response missing id")
	}

	return &Intent{
		Reference: out.Id,
		ClientParams: map[string]string{
			"provider":          razorpayName,
			"key_id":            g.conf.KeyId,
			"provider_order_id": out.Id,
		},
	}, nil
}

// VerifyCallback checks X-Razorpay-Signature, a hex HMAC-SHA256 of the raw
// request body, and normalizes the webhook event.
func (g *razorpayGateway) VerifyCallback(payload []byte, signature string) (*Event, error) {
	mac := hmac.New(sha256.New, []byte(g.conf.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrSignatureInvalid
	}

	var evt struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					Id               string `json:"id"`
					OrderId          string `json:"order_id"`
					ErrorDescription string `json:"error_description"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("razorpay: decode event: %w", err)
	}

	entity := evt.Payload.Payment.Entity
	normalized := &Event{
		Reference: entity.OrderId,
		EventId:   entity.Id + ":" + evt.Event,
	}
	switch evt.Event {
	case "payment.captured":
		normalized.Type = EventSucceeded
	case "payment.failed":
		normalized.Type = EventFailed
		normalized.Reason = entity.ErrorDescription
	case "payment.cancelled":
		normalized.Type = EventCancelled
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, evt.Event)
	}
	if normalized.Reference == "" || entity.Id == "" {
		return nil, fmt.Errorf("razorpay: event missing order id or payment id")
	}
	return normalized, nil
}
