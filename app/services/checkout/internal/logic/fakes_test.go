package logic

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sync"
	"time"

	"MapleMall/app/common/consts/biz"
	cartdal "MapleMall/app/dal/cart"
	orderdal "MapleMall/app/dal/order"
	paymentdal "MapleMall/app/dal/payment"
	productdal "MapleMall/app/dal/product"
	"MapleMall/app/services/checkout/internal/gateway"
	"MapleMall/app/services/checkout/internal/ledger"
)

type noopResult struct{}

func (noopResult) LastInsertId() (int64, error) { return 1, nil }
func (noopResult) RowsAffected() (int64, error) { return 1, nil }

type fakeProducts struct {
	rows map[int64]*productdal.Products
}

func newFakeProducts(rows ...*productdal.Products) *fakeProducts {
	f := &fakeProducts{rows: make(map[int64]*productdal.Products)}
	for _, row := range rows {
		f.rows[row.ProductId] = row
	}
	return f
}

func (f *fakeProducts) Insert(_ context.Context, data *productdal.Products) (sql.Result, error) {
	f.rows[data.ProductId] = data
	return noopResult{}, nil
}

func (f *fakeProducts) FindOne(_ context.Context, productId int64) (*productdal.Products, error) {
	row, ok := f.rows[productId]
	if !ok {
		return nil, productdal.ErrNotFound
	}
	return row, nil
}

func (f *fakeProducts) Update(_ context.Context, data *productdal.Products) error {
	f.rows[data.ProductId] = data
	return nil
}

type fakeCart struct {
	lines []*cartdal.Cart
}

func (f *fakeCart) Insert(_ context.Context, data *cartdal.Cart) (sql.Result, error) {
	f.lines = append(f.lines, data)
	return noopResult{}, nil
}

func (f *fakeCart) FindOneByUserProduct(_ context.Context, userId, productId int64) (*cartdal.Cart, error) {
	for _, line := range f.lines {
		if line.UserId == userId && line.ProductId == productId {
			return line, nil
		}
	}
	return nil, cartdal.ErrNotFound
}

func (f *fakeCart) ListByUserId(_ context.Context, userId int64) ([]*cartdal.Cart, error) {
	var out []*cartdal.Cart
	for _, line := range f.lines {
		if line.UserId == userId {
			out = append(out, line)
		}
	}
	return out, nil
}

func (f *fakeCart) UpdateQuantity(_ context.Context, userId, productId, quantity int64) error {
	for _, line := range f.lines {
		if line.UserId == userId && line.ProductId == productId {
			line.Quantity = quantity
			return nil
		}
	}
	return cartdal.ErrNotFound
}

func (f *fakeCart) Delete(_ context.Context, userId, productId int64) error {
	kept := f.lines[:0]
	for _, line := range f.lines {
		if line.UserId != userId || line.ProductId != productId {
			kept = append(kept, line)
		}
	}
	f.lines = kept
	return nil
}

func (f *fakeCart) ClearByUser(_ context.Context, userId int64) error {
	kept := f.lines[:0]
	for _, line := range f.lines {
		if line.UserId != userId {
			kept = append(kept, line)
		}
	}
	f.lines = kept
	return nil
}

type fakeOrders struct {
	mu                 sync.Mutex
	rows               map[int64]*orderdal.Orders
	failMarkPaidDirect bool
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{rows: make(map[int64]*orderdal.Orders)}
}

func (f *fakeOrders) put(ord *orderdal.Orders) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *ord
	f.rows[ord.OrderId] = &cp
}

func (f *fakeOrders) get(orderId int64) *orderdal.Orders {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[orderId]
}

func (f *fakeOrders) Insert(_ context.Context, data *orderdal.Orders) (sql.Result, error) {
	f.put(data)
	return noopResult{}, nil
}

func (f *fakeOrders) FindOne(_ context.Context, orderId int64) (*orderdal.Orders, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[orderId]
	if !ok {
		return nil, orderdal.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakeOrders) FindOneByPaymentRef(_ context.Context, paymentRef string) (*orderdal.Orders, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.PaymentRef.Valid && row.PaymentRef.String == paymentRef {
			cp := *row
			return &cp, nil
		}
	}
	return nil, orderdal.ErrNotFound
}

func (f *fakeOrders) Delete(_ context.Context, orderId int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, orderId)
	return nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userId, offset, limit int64) ([]*orderdal.Orders, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*orderdal.Orders
	for _, row := range f.rows {
		if row.UserId == userId {
			cp := *row
			out = append(out, &cp)
		}
	}
	if offset >= int64(len(out)) {
		return nil, nil
	}
	end := offset + limit
	if end > int64(len(out)) {
		end = int64(len(out))
	}
	return out[offset:end], nil
}

func (f *fakeOrders) CountByUser(_ context.Context, userId int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.rows {
		if row.UserId == userId {
			n++
		}
	}
	return n, nil
}

func (f *fakeOrders) SetAwaitingPayment(_ context.Context, orderId int64, paymentRef string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[orderId]
	if !ok || row.Status != biz.OrderCreated {
		return false, nil
	}
	row.Status = biz.OrderPendingPayment
	row.PaymentRef = sql.NullString{String: paymentRef, Valid: true}
	return true, nil
}

func (f *fakeOrders) MarkPaid(_ context.Context, orderId int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[orderId]
	if !ok || row.Status != biz.OrderPendingPayment {
		return false, nil
	}
	row.Status = biz.OrderPaid
	row.PaymentStatus = biz.PaymentCompleted
	row.StockCommitted = 1
	return true, nil
}

func (f *fakeOrders) MarkPaidDirect(_ context.Context, orderId int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMarkPaidDirect {
		return false, stderrors.New("order store unavailable")
	}
	row, ok := f.rows[orderId]
	if !ok || row.Status != biz.OrderCreated {
		return false, nil
	}
	row.Status = biz.OrderPaid
	row.StockCommitted = 1
	return true, nil
}

func (f *fakeOrders) MarkPaymentFailed(_ context.Context, orderId int64, toStatus, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[orderId]
	if !ok || row.Status != biz.OrderPendingPayment {
		return false, nil
	}
	row.Status = toStatus
	row.PaymentStatus = biz.PaymentFailed
	row.StockCommitted = 0
	row.CancelReason = reason
	return true, nil
}

func (f *fakeOrders) MarkClosed(_ context.Context, orderId int64, fromStatus []string, toStatus, reason, paymentStatus string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[orderId]
	if !ok {
		return false, nil
	}
	matched := false
	for _, from := range fromStatus {
		if row.Status == from {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	row.Status = toStatus
	row.CancelReason = reason
	if paymentStatus != "" {
		row.PaymentStatus = paymentStatus
	}
	return true, nil
}

func (f *fakeOrders) AdvanceFulfillment(_ context.Context, orderId int64, fromStatus, toStatus string, delivered bool, paymentStatus string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[orderId]
	if !ok || row.Status != fromStatus {
		return false, nil
	}
	row.Status = toStatus
	if delivered {
		row.DeliveredAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	if paymentStatus != "" {
		row.PaymentStatus = paymentStatus
	}
	return true, nil
}

type fakeOrderItems struct {
	rows       []*orderdal.OrderItems
	failInsert bool
}

func (f *fakeOrderItems) Insert(_ context.Context, data *orderdal.OrderItems) (sql.Result, error) {
	if f.failInsert {
		return nil, stderrors.New("insert rejected")
	}
	f.rows = append(f.rows, data)
	return noopResult{}, nil
}

func (f *fakeOrderItems) ListByOrder(_ context.Context, orderId int64) ([]*orderdal.OrderItems, error) {
	var out []*orderdal.OrderItems
	for _, row := range f.rows {
		if row.OrderId == orderId {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeOrderItems) DeleteByOrder(_ context.Context, orderId int64) error {
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.OrderId != orderId {
			kept = append(kept, row)
		}
	}
	f.rows = kept
	return nil
}

type fakePayments struct {
	rows map[string]*paymentdal.PaymentOrders
}

func newFakePayments() *fakePayments {
	return &fakePayments{rows: make(map[string]*paymentdal.PaymentOrders)}
}

func (f *fakePayments) Insert(_ context.Context, data *paymentdal.PaymentOrders) (sql.Result, error) {
	f.rows[data.PaymentNo] = data
	return noopResult{}, nil
}

func (f *fakePayments) FindOne(_ context.Context, paymentNo string) (*paymentdal.PaymentOrders, error) {
	row, ok := f.rows[paymentNo]
	if !ok {
		return nil, paymentdal.ErrNotFound
	}
	return row, nil
}

func (f *fakePayments) FindOneByOrderId(_ context.Context, orderId int64) (*paymentdal.PaymentOrders, error) {
	for _, row := range f.rows {
		if row.OrderId == orderId {
			return row, nil
		}
	}
	return nil, paymentdal.ErrNotFound
}

func (f *fakePayments) UpdateStatus(_ context.Context, paymentNo string, fromStatus []string, toStatus string) (bool, error) {
	row, ok := f.rows[paymentNo]
	if !ok {
		return false, nil
	}
	for _, from := range fromStatus {
		if row.Status == from {
			row.Status = toStatus
			return true, nil
		}
	}
	return false, nil
}

type fakeDedup struct {
	seen    map[string]bool
	markErr error
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{seen: make(map[string]bool)}
}

func (f *fakeDedup) Seen(_ context.Context, provider, eventId string) (bool, error) {
	return f.seen[provider+":"+eventId], nil
}

func (f *fakeDedup) Mark(_ context.Context, provider, eventId string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.seen[provider+":"+eventId] = true
	return nil
}

const (
	tokenReserved  = "RESERVED"
	tokenCommitted = "COMMITTED"
	tokenReleased  = "RELEASED"
)

type fakeLedger struct {
	mu          sync.Mutex
	nextToken   int64
	tokens      map[int64]string
	reserveErr  error
	commitErrs  int
	releaseErrs int
	restockErrs int
	commits     int
	releases    int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{nextToken: 1000, tokens: make(map[int64]string)}
}

func (f *fakeLedger) Reserve(_ context.Context, orderId int64, items []ledger.Item) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserveErr != nil {
		return 0, f.reserveErr
	}
	f.nextToken++
	f.tokens[f.nextToken] = tokenReserved
	return f.nextToken, nil
}

func (f *fakeLedger) Release(_ context.Context, token int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.releaseErrs > 0 {
		f.releaseErrs--
		return stderrors.New("inventory store unavailable")
	}
	switch f.tokens[token] {
	case tokenReserved:
		f.tokens[token] = tokenReleased
		f.releases++
		return nil
	case tokenReleased:
		return nil
	default:
		return ledger.ErrReservationConflict
	}
}

func (f *fakeLedger) Commit(_ context.Context, token int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErrs > 0 {
		f.commitErrs--
		return stderrors.New("inventory store unavailable")
	}
	switch f.tokens[token] {
	case tokenReserved:
		f.tokens[token] = tokenCommitted
		f.commits++
		return nil
	case tokenCommitted:
		return nil
	default:
		return ledger.ErrReservationConflict
	}
}

func (f *fakeLedger) ReleaseCommitted(_ context.Context, token int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.restockErrs > 0 {
		f.restockErrs--
		return stderrors.New("inventory store unavailable")
	}
	switch f.tokens[token] {
	case tokenCommitted:
		f.tokens[token] = tokenReleased
		f.releases++
		return nil
	case tokenReleased:
		return nil
	default:
		return ledger.ErrReservationConflict
	}
}

func (f *fakeLedger) status(token int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[token]
}

type fakeLocker struct {
	busy bool
}

func (f *fakeLocker) Lock(_ context.Context, _ int64) (func(), bool, error) {
	if f.busy {
		return nil, false, nil
	}
	return func() {}, true, nil
}

type fakeGateway struct {
	name      string
	intent    *gateway.Intent
	intentErr error
	event     *gateway.Event
	verifyErr error
}

func (f *fakeGateway) Name() string { return f.name }

func (f *fakeGateway) CreateIntent(_ context.Context, _ gateway.OrderInfo) (*gateway.Intent, error) {
	if f.intentErr != nil {
		return nil, f.intentErr
	}
	return f.intent, nil
}

func (f *fakeGateway) VerifyCallback(_ []byte, _ string) (*gateway.Event, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.event, nil
}
