package logic

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"time"

	"MapleMall/app/common/consts/biz"
	"MapleMall/app/common/consts/errno"
	"MapleMall/app/common/snowflake"
	"MapleMall/app/common/util"
	orderdal "MapleMall/app/dal/order"
	paymentdal "MapleMall/app/dal/payment"
	productdal "MapleMall/app/dal/product"
	"MapleMall/app/services/checkout/internal/gateway"
	"MapleMall/app/services/checkout/internal/ledger"
	"MapleMall/app/services/checkout/internal/mq"
	"MapleMall/app/services/checkout/internal/notify"
	"MapleMall/app/services/checkout/internal/svc"
	"MapleMall/app/services/checkout/internal/types"

	"github.com/hibiken/asynq"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/x/errors"
)

type PlaceOrderLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewPlaceOrderLogic(ctx context.Context, svcCtx *svc.ServiceContext) *PlaceOrderLogic {
	return &PlaceOrderLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

type pricedLine struct {
	productId  int64
	title      string
	quantity   int64
	priceCents int64
}

// PlaceOrder turns the user's cart into an order. Stock is reserved before
// the order row exists, so a failure at any later step releases the
// reservation and leaves no half-placed order behind.
func (l *PlaceOrderLogic) PlaceOrder(req *types.PlaceOrderRequest) (*types.PlaceOrderResponse, error) {
	userId, err := util.UserIdFromCtx(l.ctx)
	if err != nil {
		return nil, err
	}

	switch req.PaymentMethod {
	case biz.MethodCashOnDelivery, biz.MethodStripe, biz.MethodRazorpay:
	default:
		return nil, errors.New(int(errno.UnknownProvider), "unsupported payment method")
	}
	if req.AddressId <= 0 {
		return nil, errors.New(int(errno.InvalidParam), "address id required")
	}

	lines, err := l.priceCart(userId)
	if err != nil {
		return nil, err
	}

	var totalCents int64
	items := make([]ledger.Item, 0, len(lines))
	for _, line := range lines {
		totalCents += line.priceCents * line.quantity
		items = append(items, ledger.Item{ProductId: line.productId, Quantity: line.quantity})
	}
	shippingCents := l.svcCtx.Config.ShippingFlatCents
	taxCents := totalCents * l.svcCtx.Config.TaxBps / 10000
	finalCents := totalCents + shippingCents + taxCents

	orderId := snowflake.Next()

	token, err := l.svcCtx.Ledger.Reserve(l.ctx, orderId, items)
	if err != nil {
		var stockErr *ledger.InsufficientStockError
		if stderrors.As(err, &stockErr) {
			return nil, errors.New(int(errno.InsufficientStock),
				"insufficient stock for product "+strconv.FormatInt(stockErr.ProductId, 10))
		}
		l.Logger.Error("logic: place order: reserve: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	addressSnapshot, _ := json.Marshal(map[string]any{
		"address_id": req.AddressId,
		"remark":     req.Remark,
	})

	ord := &orderdal.Orders{
		OrderId:          orderId,
		UserId:           userId,
		AddressSnapshot:  string(addressSnapshot),
		PaymentMethod:    req.PaymentMethod,
		PaymentStatus:    biz.PaymentPending,
		Status:           biz.OrderCreated,
		ReservationToken: token,
		TotalCents:       totalCents,
		ShippingCents:    shippingCents,
		TaxCents:         taxCents,
		FinalCents:       finalCents,
	}
	if _, err := l.svcCtx.Orders.Insert(l.ctx, ord); err != nil {
		l.releaseQuietly(token, orderId)
		l.Logger.Error("logic: place order: insert order: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}
	for _, line := range lines {
		if _, err := l.svcCtx.OrderItems.Insert(l.ctx, &orderdal.OrderItems{
			OrderId:    orderId,
			ProductId:  line.productId,
			Title:      line.title,
			Quantity:   line.quantity,
			PriceCents: line.priceCents,
		}); err != nil {
			l.discardDraft(orderId, token)
			l.Logger.Error("logic: place order: insert item: ", err)
			return nil, errors.New(int(errno.InternalError), "internal error")
		}
	}

	if req.PaymentMethod == biz.MethodCashOnDelivery {
		return l.placeCashOnDelivery(ord)
	}
	return l.placeWithGateway(ord)
}

// placeCashOnDelivery settles immediately: stock commits and the order goes
// straight to PAID with payment still owed on delivery. The ledger moves
// first; a failed status write restocks through the committed path so the
// reservation is never left dangling behind a half-made order.
func (l *PlaceOrderLogic) placeCashOnDelivery(ord *orderdal.Orders) (*types.PlaceOrderResponse, error) {
	if err := l.svcCtx.Ledger.Commit(l.ctx, ord.ReservationToken); err != nil {
		l.discardDraft(ord.OrderId, ord.ReservationToken)
		l.Logger.Error("logic: place order: commit reservation: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}
	moved, err := l.svcCtx.Orders.MarkPaidDirect(l.ctx, ord.OrderId)
	if err != nil || !moved {
		l.discardCommittedDraft(ord.OrderId, ord.ReservationToken)
		l.Logger.Error("logic: place order: mark paid direct: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}
	l.clearCart(ord.UserId)
	l.finishPlacement(ord, notify.KindOrderPaid, biz.OrderPaid)

	return &types.PlaceOrderResponse{
		OrderId:    ord.OrderId,
		Status:     biz.OrderPaid,
		FinalCents: ord.FinalCents,
	}, nil
}

// placeWithGateway creates a provider-side intent and parks the order in
// PENDING_PAYMENT until a callback or the expiry task settles it.
func (l *PlaceOrderLogic) placeWithGateway(ord *orderdal.Orders) (*types.PlaceOrderResponse, error) {
	gw, err := l.svcCtx.Gateways.Get(ord.PaymentMethod)
	if err != nil {
		l.discardDraft(ord.OrderId, ord.ReservationToken)
		return nil, errors.New(int(errno.UnknownProvider), "unsupported payment method")
	}

	intent, err := gw.CreateIntent(l.ctx, gateway.OrderInfo{
		OrderId:     ord.OrderId,
		AmountCents: ord.FinalCents,
		Currency:    l.svcCtx.Config.Currency,
	})
	if err != nil {
		l.discardDraft(ord.OrderId, ord.ReservationToken)
		if stderrors.Is(err, gateway.ErrGatewayUnavailable) {
			return nil, errors.New(int(errno.GatewayUnavailable), "payment provider unavailable, try again")
		}
		l.Logger.Error("logic: place order: create intent: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	clientParams, _ := json.Marshal(intent.ClientParams)
	if _, err := l.svcCtx.PaymentOrders.Insert(l.ctx, &paymentdal.PaymentOrders{
		PaymentNo:   strconv.FormatInt(snowflake.Next(), 10),
		OrderId:     ord.OrderId,
		UserId:      ord.UserId,
		Provider:    ord.PaymentMethod,
		AmountCents: ord.FinalCents,
		Currency:    l.svcCtx.Config.Currency,
		Status:      paymentdal.IntentInit,
		ClientParams: sql.NullString{
			String: string(clientParams),
			Valid:  len(clientParams) > 2,
		},
		TimeoutAt: time.Now().Add(l.svcCtx.ReservationTTL),
	}); err != nil {
		l.Logger.Error("logic: place order: insert payment order: ", err)
	}

	moved, err := l.svcCtx.Orders.SetAwaitingPayment(l.ctx, ord.OrderId, intent.Reference)
	if err != nil || !moved {
		l.discardDraft(ord.OrderId, ord.ReservationToken)
		l.Logger.Error("logic: place order: set awaiting payment: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	l.enqueueExpiry(ord)
	l.finishPlacement(ord, notify.KindOrderCreated, biz.OrderPendingPayment)

	return &types.PlaceOrderResponse{
		OrderId:      ord.OrderId,
		Status:       biz.OrderPendingPayment,
		FinalCents:   ord.FinalCents,
		PaymentRef:   intent.Reference,
		ClientParams: intent.ClientParams,
	}, nil
}

func (l *PlaceOrderLogic) priceCart(userId int64) ([]pricedLine, error) {
	cartLines, err := l.svcCtx.Cart.ListByUserId(l.ctx, userId)
	if err != nil {
		l.Logger.Error("logic: place order: list cart: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}
	if len(cartLines) == 0 {
		return nil, errors.New(int(errno.EmptyCart), "cart is empty")
	}

	lines := make([]pricedLine, 0, len(cartLines))
	for _, line := range cartLines {
		product, err := l.svcCtx.Products.FindOne(l.ctx, line.ProductId)
		if err != nil {
			if err == productdal.ErrNotFound {
				return nil, errors.New(int(errno.ProductNotFound),
					"product "+strconv.FormatInt(line.ProductId, 10)+" no longer available")
			}
			l.Logger.Error("logic: place order: find product: ", err)
			return nil, errors.New(int(errno.InternalError), "internal error")
		}
		if product.Status != productdal.StatusOnShelf {
			return nil, errors.New(int(errno.ProductNotFound),
				"product "+strconv.FormatInt(line.ProductId, 10)+" no longer available")
		}
		lines = append(lines, pricedLine{
			productId:  line.ProductId,
			title:      product.Title,
			quantity:   line.Quantity,
			priceCents: product.PriceCents,
		})
	}
	return lines, nil
}

// discardDraft undoes a partially placed order: stock back, rows gone.
func (l *PlaceOrderLogic) discardDraft(orderId, token int64) {
	l.releaseQuietly(token, orderId)
	l.deleteDraftRows(orderId)
}

// discardCommittedDraft is discardDraft for a draft whose stock already
// moved to sold; the restock goes through the committed path.
func (l *PlaceOrderLogic) discardCommittedDraft(orderId, token int64) {
	if err := l.svcCtx.Ledger.ReleaseCommitted(l.ctx, token); err != nil {
		l.Logger.Errorf("logic: place order: restock reservation %d for order %d: %v", token, orderId, err)
	}
	l.deleteDraftRows(orderId)
}

func (l *PlaceOrderLogic) deleteDraftRows(orderId int64) {
	if err := l.svcCtx.OrderItems.DeleteByOrder(l.ctx, orderId); err != nil {
		l.Logger.Errorf("logic: place order: discard items for order %d: %v", orderId, err)
	}
	if err := l.svcCtx.Orders.Delete(l.ctx, orderId); err != nil {
		l.Logger.Errorf("logic: place order: discard order %d: %v", orderId, err)
	}
}

func (l *PlaceOrderLogic) releaseQuietly(token, orderId int64) {
	if err := l.svcCtx.Ledger.Release(l.ctx, token); err != nil {
		l.Logger.Errorf("logic: place order: release reservation %d for order %d: %v", token, orderId, err)
	}
}

func (l *PlaceOrderLogic) enqueueExpiry(ord *orderdal.Orders) {
	if l.svcCtx.AsynqClient == nil {
		return
	}
	payload, _ := json.Marshal(mq.ExpireReservationPayload{OrderId: ord.OrderId, UserId: ord.UserId})
	task := asynq.NewTask(mq.TaskExpireReservation, payload)
	if _, err := l.svcCtx.AsynqClient.EnqueueContext(l.ctx, task,
		asynq.ProcessIn(l.svcCtx.ReservationTTL), asynq.MaxRetry(5)); err != nil {
		l.Logger.Errorf("logic: place order: enqueue expiry for order %d: %v", ord.OrderId, err)
	}
}

// clearCart empties the cart once the order has settled. Gateway orders
// keep the cart until the payment lands so a declined charge can be retried.
func (l *PlaceOrderLogic) clearCart(userId int64) {
	if err := l.svcCtx.Cart.ClearByUser(l.ctx, userId); err != nil {
		l.Logger.Errorf("logic: place order: clear cart for user %d: %v", userId, err)
	}
}

// finishPlacement fans out events. Failures here are logged only; the order
// itself is already durable.
func (l *PlaceOrderLogic) finishPlacement(ord *orderdal.Orders, kind, status string) {
	l.svcCtx.Hub.Broadcast(notify.Event{
		Kind:    kind,
		OrderId: ord.OrderId,
		UserId:  ord.UserId,
		Status:  status,
	})
	if err := mq.PublishOrderEvent(l.svcCtx, mq.OrderEvent{
		Kind:       kind,
		OrderId:    ord.OrderId,
		UserId:     ord.UserId,
		Status:     status,
		FinalCents: ord.FinalCents,
	}); err != nil {
		l.Logger.Errorf("logic: place order: publish event for order %d: %v", ord.OrderId, err)
	}
}
