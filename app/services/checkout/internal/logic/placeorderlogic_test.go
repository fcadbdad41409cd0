package logic

import (
	"context"
	"fmt"
	"testing"

	"MapleMall/app/common/consts/biz"
	"MapleMall/app/common/consts/errno"
	cartdal "MapleMall/app/dal/cart"
	paymentdal "MapleMall/app/dal/payment"
	productdal "MapleMall/app/dal/product"
	"MapleMall/app/services/checkout/internal/config"
	"MapleMall/app/services/checkout/internal/gateway"
	"MapleMall/app/services/checkout/internal/ledger"
	"MapleMall/app/services/checkout/internal/notify"
	"MapleMall/app/services/checkout/internal/svc"
	"MapleMall/app/services/checkout/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xerrors "github.com/zeromicro/x/errors"
)

type testEnv struct {
	svcCtx   *svc.ServiceContext
	products *fakeProducts
	cart     *fakeCart
	orders   *fakeOrders
	items    *fakeOrderItems
	payments *fakePayments
	dedup    *fakeDedup
	ledger   *fakeLedger
	locker   *fakeLocker
	stripe   *fakeGateway
	razorpay *fakeGateway
}

func newTestEnv() *testEnv {
	env := &testEnv{
		products: newFakeProducts(
			&productdal.Products{ProductId: 101, Title: "maple syrup", PriceCents: 1200, Status: productdal.StatusOnShelf},
			&productdal.Products{ProductId: 102, Title: "pancake mix", PriceCents: 800, Status: productdal.StatusOnShelf},
		),
		cart:     &fakeCart{},
		orders:   newFakeOrders(),
		items:    &fakeOrderItems{},
		payments: newFakePayments(),
		dedup:    newFakeDedup(),
		ledger:   newFakeLedger(),
		locker:   &fakeLocker{},
		stripe:   &fakeGateway{name: biz.MethodStripe},
		razorpay: &fakeGateway{name: biz.MethodRazorpay},
	}
	env.svcCtx = &svc.ServiceContext{
		Config: config.Config{
			ShippingFlatCents: 500,
			TaxBps:            1000,
			Currency:          "USD",
		},
		Products:      env.products,
		Cart:          env.cart,
		Orders:        env.orders,
		OrderItems:    env.items,
		PaymentOrders: env.payments,
		CallbackDedup: env.dedup,
		Ledger:        env.ledger,
		Gateways:      gateway.NewRegistry(env.stripe, env.razorpay),
		Hub:           notify.NewHub(),
		Locker:        env.locker,
	}
	return env
}

func userCtx(userId int64) context.Context {
	return context.WithValue(context.Background(), biz.USER_KEY, userId)
}

func operatorCtx(userId int64) context.Context {
	ctx := context.WithValue(context.Background(), biz.USER_KEY, userId)
	return context.WithValue(ctx, biz.OPERATOR_KEY, true)
}

func assertCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	cm, ok := err.(*xerrors.CodeMsg)
	require.True(t, ok, "expected coded error, got %v", err)
	assert.Equal(t, code, cm.Code, "unexpected code for %v", err)
}

func fillCart(env *testEnv, userId int64) {
	env.cart.lines = append(env.cart.lines,
		&cartdal.Cart{UserId: userId, ProductId: 101, Quantity: 2},
		&cartdal.Cart{UserId: userId, ProductId: 102, Quantity: 1},
	)
}

func TestPlaceOrderCashOnDelivery(t *testing.T) {
	env := newTestEnv()
	fillCart(env, 7)

	l := NewPlaceOrderLogic(userCtx(7), env.svcCtx)
	resp, err := l.PlaceOrder(&types.PlaceOrderRequest{
		AddressId:     1,
		PaymentMethod: biz.MethodCashOnDelivery,
	})
	require.NoError(t, err)

	// 2*1200 + 800 = 3200 subtotal, 500 shipping, 10% tax on goods.
	assert.Equal(t, int64(3200+500+320), resp.FinalCents)
	assert.Equal(t, biz.OrderPaid, resp.Status)

	ord := env.orders.get(resp.OrderId)
	require.NotNil(t, ord)
	assert.Equal(t, biz.OrderPaid, ord.Status)
	assert.Equal(t, int64(1), ord.StockCommitted)
	assert.Equal(t, biz.PaymentPending, ord.PaymentStatus)
	assert.Equal(t, tokenCommitted, env.ledger.status(ord.ReservationToken))

	items, _ := env.items.ListByOrder(context.Background(), resp.OrderId)
	assert.Len(t, items, 2)
	assert.Empty(t, env.cart.lines)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	env := newTestEnv()

	l := NewPlaceOrderLogic(userCtx(7), env.svcCtx)
	_, err := l.PlaceOrder(&types.PlaceOrderRequest{AddressId: 1, PaymentMethod: biz.MethodCashOnDelivery})
	assertCode(t, err, errno.EmptyCart)
}

func TestPlaceOrderUnknownMethod(t *testing.T) {
	env := newTestEnv()
	fillCart(env, 7)

	l := NewPlaceOrderLogic(userCtx(7), env.svcCtx)
	_, err := l.PlaceOrder(&types.PlaceOrderRequest{AddressId: 1, PaymentMethod: "barter"})
	assertCode(t, err, errno.UnknownProvider)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	env := newTestEnv()
	fillCart(env, 7)
	env.ledger.reserveErr = &ledger.InsufficientStockError{ProductId: 101}

	l := NewPlaceOrderLogic(userCtx(7), env.svcCtx)
	_, err := l.PlaceOrder(&types.PlaceOrderRequest{AddressId: 1, PaymentMethod: biz.MethodCashOnDelivery})
	assertCode(t, err, errno.InsufficientStock)

	// Nothing half-placed: no order rows, cart untouched.
	assert.Empty(t, env.orders.rows)
	assert.Len(t, env.cart.lines, 2)
}

func TestPlaceOrderWithGateway(t *testing.T) {
	env := newTestEnv()
	fillCart(env, 7)
	env.stripe.intent = &gateway.Intent{
		Reference:    "pi_abc",
		ClientParams: map[string]string{"client_secret": "pi_abc_secret"},
	}

	l := NewPlaceOrderLogic(userCtx(7), env.svcCtx)
	resp, err := l.PlaceOrder(&types.PlaceOrderRequest{AddressId: 1, PaymentMethod: biz.MethodStripe})
	require.NoError(t, err)

	assert.Equal(t, biz.OrderPendingPayment, resp.Status)
	assert.Equal(t, "pi_abc", resp.PaymentRef)
	assert.Equal(t, "pi_abc_secret", resp.ClientParams["client_secret"])

	ord := env.orders.get(resp.OrderId)
	require.NotNil(t, ord)
	assert.Equal(t, biz.OrderPendingPayment, ord.Status)
	assert.Equal(t, "pi_abc", ord.PaymentRef.String)
	assert.Equal(t, int64(0), ord.StockCommitted)
	assert.Equal(t, tokenReserved, env.ledger.status(ord.ReservationToken))

	po, err := env.payments.FindOneByOrderId(context.Background(), resp.OrderId)
	require.NoError(t, err)
	assert.Equal(t, paymentdal.IntentInit, po.Status)
	assert.Equal(t, ord.FinalCents, po.AmountCents)

	// The cart survives until the payment lands; a declined charge must be
	// retryable without rebuilding it.
	assert.Len(t, env.cart.lines, 2)
}

func TestPlaceOrderCashCommitFailure(t *testing.T) {
	env := newTestEnv()
	fillCart(env, 7)
	env.ledger.commitErrs = 1

	l := NewPlaceOrderLogic(userCtx(7), env.svcCtx)
	_, err := l.PlaceOrder(&types.PlaceOrderRequest{AddressId: 1, PaymentMethod: biz.MethodCashOnDelivery})
	assertCode(t, err, errno.InternalError)

	// Draft discarded, reservation released, nothing frozen.
	assert.Empty(t, env.orders.rows)
	assert.Empty(t, env.items.rows)
	assert.Equal(t, 1, env.ledger.releases)
	assert.Len(t, env.cart.lines, 2)
}

func TestPlaceOrderCashStatusWriteFailure(t *testing.T) {
	env := newTestEnv()
	fillCart(env, 7)
	env.orders.failMarkPaidDirect = true

	l := NewPlaceOrderLogic(userCtx(7), env.svcCtx)
	_, err := l.PlaceOrder(&types.PlaceOrderRequest{AddressId: 1, PaymentMethod: biz.MethodCashOnDelivery})
	assertCode(t, err, errno.InternalError)

	// Stock had already committed, so the discard restocks through the
	// committed path instead of leaving sold stock behind.
	assert.Empty(t, env.orders.rows)
	assert.Equal(t, 1, env.ledger.commits)
	assert.Equal(t, 1, env.ledger.releases)
}

func TestPlaceOrderGatewayUnavailable(t *testing.T) {
	env := newTestEnv()
	fillCart(env, 7)
	env.stripe.intentErr = fmt.Errorf("%w: connect refused", gateway.ErrGatewayUnavailable)

	l := NewPlaceOrderLogic(userCtx(7), env.svcCtx)
	_, err := l.PlaceOrder(&types.PlaceOrderRequest{AddressId: 1, PaymentMethod: biz.MethodStripe})
	assertCode(t, err, errno.GatewayUnavailable)

	// Draft discarded and the reservation released.
	assert.Empty(t, env.orders.rows)
	assert.Empty(t, env.items.rows)
	assert.Equal(t, 1, env.ledger.releases)
}

func TestPlaceOrderDelistedProduct(t *testing.T) {
	env := newTestEnv()
	fillCart(env, 7)
	env.products.rows[101].Status = productdal.StatusOffShelf

	l := NewPlaceOrderLogic(userCtx(7), env.svcCtx)
	_, err := l.PlaceOrder(&types.PlaceOrderRequest{AddressId: 1, PaymentMethod: biz.MethodCashOnDelivery})
	assertCode(t, err, errno.ProductNotFound)
}
