package gateway

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrGatewayUnavailable marks transport-level failures on intent
	// creation. The caller releases its reservation and reports a retriable
	// error; the order never advances past CREATED.
	ErrGatewayUnavailable = errors.New("gateway: provider unavailable")

	// ErrSignatureInvalid rejects a callback whose signature does not verify.
	// Processing fails closed: no state is applied on an unverifiable payload.
	ErrSignatureInvalid = errors.New("gateway: callback signature invalid")

	ErrUnknownEvent = errors.New("gateway: unrecognized callback event")
)

type EventType string

const (
	EventSucceeded EventType = "succeeded"
	EventFailed    EventType = "failed"
	EventCancelled EventType = "cancelled"
)

// Event is the provider-agnostic view of a payment outcome. Each adapter
// collapses its provider's event vocabulary into this three-way union.
type Event struct {
	Type      EventType
	Reference string
	EventId   string
	Reason    string
}

// Intent is the provider-side charge created for an order. ClientParams is
// returned verbatim to the storefront client to complete the payment.
type Intent struct {
	Reference    string
	ClientParams map[string]string
}

type OrderInfo struct {
	OrderId     int64
	AmountCents int64
	Currency    string
}

type Gateway interface {
	Name() string
	CreateIntent(ctx context.Context, order OrderInfo) (*Intent, error)
	VerifyCallback(payload []byte, signature string) (*Event, error)
}

// Registry dispatches on the order's payment method.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Name()] = g
	}
	return r
}

func (r *Registry) Get(name string) (Gateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("gateway: unknown provider %q", name)
	}
	return g, nil
}
