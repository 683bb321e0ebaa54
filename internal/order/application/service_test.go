package application

import (
	"context"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accdomain "github.com/retailops/orderdesk/internal/account/domain"
	catdomain "github.com/retailops/orderdesk/internal/catalog/domain"
	"github.com/retailops/orderdesk/internal/order/domain"
	"github.com/retailops/orderdesk/pkg/apperror"
)

// The fakes mirror the postgres unit of work: Do hands the closure a deep
// copy of the state and only merges it back on success, so a failed
// operation observably leaves stock and orders untouched.

type fakeEvent struct {
	aggregateID string
	eventType   string
	payload     []byte
}

type fakeState struct {
	users       map[int64]accdomain.User
	products    map[int64]catdomain.Product
	orders      map[int64]domain.Order
	events      []fakeEvent
	nextOrderID int64
	nextLineID  int64
}

func newFakeState() *fakeState {
	return &fakeState{
		users:       map[int64]accdomain.User{},
		products:    map[int64]catdomain.Product{},
		orders:      map[int64]domain.Order{},
		nextOrderID: 1,
		nextLineID:  1,
	}
}

func (st *fakeState) clone() *fakeState {
	cp := &fakeState{
		users:       make(map[int64]accdomain.User, len(st.users)),
		products:    make(map[int64]catdomain.Product, len(st.products)),
		orders:      make(map[int64]domain.Order, len(st.orders)),
		events:      append([]fakeEvent(nil), st.events...),
		nextOrderID: st.nextOrderID,
		nextLineID:  st.nextLineID,
	}
	for id, u := range st.users {
		cp.users[id] = u
	}
	for id, p := range st.products {
		cp.products[id] = p
	}
	for id, o := range st.orders {
		o.Lines = append([]domain.OrderLine(nil), o.Lines...)
		cp.orders[id] = o
	}
	return cp
}

type fakeAccounts struct{ st *fakeState }

func (f *fakeAccounts) GetByID(_ context.Context, id int64) (accdomain.User, error) {
	u, ok := f.st.users[id]
	if !ok {
		return accdomain.User{}, apperror.NotFoundf("account %d not found", id)
	}
	return u, nil
}

type fakeCatalog struct{ st *fakeState }

func (f *fakeCatalog) GetForUpdate(_ context.Context, id int64) (catdomain.Product, error) {
	p, ok := f.st.products[id]
	if !ok {
		return catdomain.Product{}, apperror.NotFoundf("product %d not found", id)
	}
	return p, nil
}

func (f *fakeCatalog) AdjustStock(_ context.Context, id int64, delta int) error {
	p, ok := f.st.products[id]
	if !ok {
		return apperror.NotFoundf("product %d not found", id)
	}
	p.Stock += delta
	f.st.products[id] = p
	return nil
}

type fakeOrders struct{ st *fakeState }

func (f *fakeOrders) Save(_ context.Context, o *domain.Order) error {
	o.ID = f.st.nextOrderID
	f.st.nextOrderID++
	for i := range o.Lines {
		o.Lines[i].ID = f.st.nextLineID
		o.Lines[i].OrderID = o.ID
		f.st.nextLineID++
	}
	stored := *o
	stored.Lines = append([]domain.OrderLine(nil), o.Lines...)
	f.st.orders[o.ID] = stored
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, id int64) (domain.Order, error) {
	o, ok := f.st.orders[id]
	if !ok {
		return domain.Order{}, apperror.NotFoundf("order %d not found", id)
	}
	o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return o, nil
}

func (f *fakeOrders) Delete(_ context.Context, id int64) error {
	if _, ok := f.st.orders[id]; !ok {
		return apperror.NotFoundf("order %d not found", id)
	}
	delete(f.st.orders, id)
	return nil
}

func (f *fakeOrders) AccountStats(_ context.Context, accountID int64) (domain.AccountSummary, error) {
	sum := domain.AccountSummary{AccountID: accountID, Sum: decimal.Zero, Average: decimal.Zero}
	for _, o := range f.st.orders {
		if o.AccountID == accountID {
			sum.Count++
			sum.Sum = sum.Sum.Add(o.Total)
		}
	}
	if sum.Count > 0 {
		sum.Average = sum.Sum.Div(decimal.NewFromInt(sum.Count))
	}
	return sum, nil
}

func (f *fakeOrders) RangeStats(_ context.Context, from, to time.Time) (domain.RangeSummary, error) {
	rs := domain.RangeSummary{From: from, To: to, Sum: decimal.Zero}
	for _, o := range f.st.orders {
		if !o.CreatedAt.Before(from) && !o.CreatedAt.After(to) {
			rs.Count++
			rs.Sum = rs.Sum.Add(o.Total)
		}
	}
	return rs, nil
}

func (f *fakeOrders) TopByTotal(_ context.Context, n int) ([]domain.Order, error) {
	all := make([]domain.Order, 0, len(f.st.orders))
	for _, o := range f.st.orders {
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Total.GreaterThan(all[j].Total) })
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

type fakeOutbox struct{ st *fakeState }

func (f *fakeOutbox) Append(_ context.Context, _, aggregateID, eventType string, payload []byte, _ string) error {
	f.st.events = append(f.st.events, fakeEvent{aggregateID: aggregateID, eventType: eventType, payload: payload})
	return nil
}

type fakeUoW struct{ st *fakeState }

func (u *fakeUoW) Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	work := u.st.clone()
	s := Stores{
		Accounts: &fakeAccounts{st: work},
		Catalog:  &fakeCatalog{st: work},
		Orders:   &fakeOrders{st: work},
		Outbox:   &fakeOutbox{st: work},
	}
	if err := fn(ctx, s); err != nil {
		return err
	}
	*u.st = *work
	return nil
}

func newEngine(st *fakeState) *Engine {
	return NewEngine(slog.Default(), &fakeUoW{st: st}, &fakeOrders{st: st})
}

func seedAccount(st *fakeState, id int64, enabled bool) {
	st.users[id] = accdomain.User{ID: id, Username: "acct", Email: "acct@example.com", Enabled: enabled, Role: accdomain.RoleUser}
}

func seedProduct(st *fakeState, id int64, name string, price string, stock int) {
	st.products[id] = catdomain.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock}
}

func TestCreateOrderSuccess(t *testing.T) {
	st := newFakeState()
	seedAccount(st, 1, true)
	seedProduct(st, 10, "grinder", "5000", 10)
	eng := newEngine(st)

	o, err := eng.CreateOrder(context.Background(), 1, []LineRequest{{ProductID: 10, Quantity: 3}})
	require.NoError(t, err)

	assert.True(t, o.Total.Equal(decimal.NewFromInt(15000)), "total = %s", o.Total)
	assert.Equal(t, 7, st.products[10].Stock)
	require.Len(t, o.Lines, 1)
	assert.NotZero(t, o.ID)
	assert.NotZero(t, o.Lines[0].ID)
	assert.True(t, o.Lines[0].UnitPrice.Equal(decimal.NewFromInt(5000)))

	require.Len(t, st.events, 1)
	assert.Equal(t, "OrderCreated", st.events[0].eventType)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	st := newFakeState()
	seedAccount(st, 1, true)
	seedProduct(st, 10, "grinder", "5000", 7)
	eng := newEngine(st)

	_, err := eng.CreateOrder(context.Background(), 1, []LineRequest{{ProductID: 10, Quantity: 9999}})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInsufficientStock, apperror.KindOf(err))

	var ise *apperror.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "grinder", ise.Product)
	assert.Equal(t, 9999, ise.Requested)
	assert.Equal(t, 7, ise.Available)

	assert.Equal(t, 7, st.products[10].Stock)
	assert.Empty(t, st.orders)
	assert.Empty(t, st.events)
}

func TestCreateOrderRollsBackEarlierLines(t *testing.T) {
	st := newFakeState()
	seedAccount(st, 1, true)
	seedProduct(st, 10, "grinder", "5000", 10)
	seedProduct(st, 11, "kettle", "30", 1)
	eng := newEngine(st)

	_, err := eng.CreateOrder(context.Background(), 1, []LineRequest{
		{ProductID: 10, Quantity: 3},
		{ProductID: 11, Quantity: 5},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInsufficientStock, apperror.KindOf(err))

	// The first line's decrement must not survive the second line's failure.
	assert.Equal(t, 10, st.products[10].Stock)
	assert.Equal(t, 1, st.products[11].Stock)
	assert.Empty(t, st.orders)
}

func TestCreateOrderEmptyLines(t *testing.T) {
	st := newFakeState()
	eng := newEngine(st)

	_, err := eng.CreateOrder(context.Background(), 1, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestCreateOrderNonPositiveQuantity(t *testing.T) {
	st := newFakeState()
	seedAccount(st, 1, true)
	seedProduct(st, 10, "grinder", "5000", 10)
	eng := newEngine(st)

	for _, qty := range []int{0, -3} {
		_, err := eng.CreateOrder(context.Background(), 1, []LineRequest{{ProductID: 10, Quantity: qty}})
		require.Error(t, err)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	}
	assert.Equal(t, 10, st.products[10].Stock)
}

func TestCreateOrderDisabledAccount(t *testing.T) {
	st := newFakeState()
	seedAccount(st, 1, false)
	seedProduct(st, 10, "grinder", "5000", 10)
	eng := newEngine(st)

	_, err := eng.CreateOrder(context.Background(), 1, []LineRequest{{ProductID: 10, Quantity: 2}})
	require.Error(t, err)
	assert.Equal(t, apperror.KindBusinessRule, apperror.KindOf(err))
	assert.Equal(t, 10, st.products[10].Stock)
	assert.Empty(t, st.orders)
}

func TestCreateOrderAccountNotFound(t *testing.T) {
	st := newFakeState()
	seedProduct(st, 10, "grinder", "5000", 10)
	eng := newEngine(st)

	_, err := eng.CreateOrder(context.Background(), 99, []LineRequest{{ProductID: 10, Quantity: 1}})
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestCreateOrderProductNotFound(t *testing.T) {
	st := newFakeState()
	seedAccount(st, 1, true)
	seedProduct(st, 10, "grinder", "5000", 10)
	eng := newEngine(st)

	_, err := eng.CreateOrder(context.Background(), 1, []LineRequest{
		{ProductID: 10, Quantity: 3},
		{ProductID: 404, Quantity: 1},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, 10, st.products[10].Stock)
}

func TestCreateOrderRepeatedProductSharesSnapshot(t *testing.T) {
	st := newFakeState()
	seedAccount(st, 1, true)
	seedProduct(st, 10, "grinder", "5000", 5)
	eng := newEngine(st)

	o, err := eng.CreateOrder(context.Background(), 1, []LineRequest{
		{ProductID: 10, Quantity: 2},
		{ProductID: 10, Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, st.products[10].Stock)
	assert.True(t, o.Lines[0].UnitPrice.Equal(o.Lines[1].UnitPrice))
	assert.True(t, o.Total.Equal(decimal.NewFromInt(25000)))

	// A sixth unit does not exist; the combined request must fail whole.
	_, err = eng.CreateOrder(context.Background(), 1, []LineRequest{
		{ProductID: 10, Quantity: 1},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInsufficientStock, apperror.KindOf(err))
}

func TestCreateOrderRepeatedProductOverdraw(t *testing.T) {
	st := newFakeState()
	seedAccount(st, 1, true)
	seedProduct(st, 10, "grinder", "5000", 4)
	eng := newEngine(st)

	_, err := eng.CreateOrder(context.Background(), 1, []LineRequest{
		{ProductID: 10, Quantity: 3},
		{ProductID: 10, Quantity: 3},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInsufficientStock, apperror.KindOf(err))
	assert.Equal(t, 4, st.products[10].Stock)
}

func TestPriceSnapshotImmutable(t *testing.T) {
	st := newFakeState()
	seedAccount(st, 1, true)
	seedProduct(st, 10, "grinder", "5000", 10)
	eng := newEngine(st)

	o, err := eng.CreateOrder(context.Background(), 1, []LineRequest{{ProductID: 10, Quantity: 3}})
	require.NoError(t, err)

	// Reprice the product after the sale.
	p := st.products[10]
	p.Price = decimal.NewFromInt(9000)
	st.products[10] = p

	got, err := eng.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(15000)))
	assert.True(t, got.Lines[0].UnitPrice.Equal(decimal.NewFromInt(5000)))
	assert.True(t, got.Lines[0].Subtotal().Equal(decimal.NewFromInt(15000)))
}

func TestCancelOrderRestoresStock(t *testing.T) {
	st := newFakeState()
	seedAccount(st, 1, true)
	seedProduct(st, 10, "grinder", "5000", 10)
	eng := newEngine(st)

	o, err := eng.CreateOrder(context.Background(), 1, []LineRequest{{ProductID: 10, Quantity: 3}})
	require.NoError(t, err)
	require.Equal(t, 7, st.products[10].Stock)

	require.NoError(t, eng.CancelOrder(context.Background(), o.ID))

	assert.Equal(t, 10, st.products[10].Stock)
	_, err = eng.GetOrder(context.Background(), o.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	require.Len(t, st.events, 2)
	assert.Equal(t, "OrderCancelled", st.events[1].eventType)
}

func TestCancelOrderNotFound(t *testing.T) {
	st := newFakeState()
	eng := newEngine(st)

	err := eng.CancelOrder(context.Background(), 123)
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestCancelOrderMissingProductIsBusinessRule(t *testing.T) {
	st := newFakeState()
	seedAccount(st, 1, true)
	seedProduct(st, 10, "grinder", "5000", 10)
	eng := newEngine(st)

	o, err := eng.CreateOrder(context.Background(), 1, []LineRequest{{ProductID: 10, Quantity: 2}})
	require.NoError(t, err)

	// Simulate a data-integrity defect: the product vanishes under the order.
	delete(st.products, 10)

	err = eng.CancelOrder(context.Background(), o.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindBusinessRule, apperror.KindOf(err))

	// The failed cancellation must leave the order in place.
	_, err = eng.GetOrder(context.Background(), o.ID)
	assert.NoError(t, err)
}

func TestAccountSummaryZeroOrders(t *testing.T) {
	st := newFakeState()
	seedAccount(st, 1, true)
	eng := newEngine(st)

	s, err := eng.AccountSummary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.Count)
	assert.True(t, s.Sum.IsZero())
	assert.True(t, s.Average.IsZero())
}

func TestAccountSummaryWithOrders(t *testing.T) {
	st := newFakeState()
	seedAccount(st, 1, true)
	seedProduct(st, 10, "grinder", "100", 50)
	eng := newEngine(st)

	_, err := eng.CreateOrder(context.Background(), 1, []LineRequest{{ProductID: 10, Quantity: 1}})
	require.NoError(t, err)
	_, err = eng.CreateOrder(context.Background(), 1, []LineRequest{{ProductID: 10, Quantity: 3}})
	require.NoError(t, err)

	s, err := eng.AccountSummary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Count)
	assert.True(t, s.Sum.Equal(decimal.NewFromInt(400)))
	assert.True(t, s.Average.Equal(decimal.NewFromInt(200)))
}

func TestRangeSummary(t *testing.T) {
	st := newFakeState()
	now := time.Now().UTC()
	st.orders[1] = domain.Order{ID: 1, AccountID: 1, Total: decimal.NewFromInt(100), CreatedAt: now.Add(-48 * time.Hour)}
	st.orders[2] = domain.Order{ID: 2, AccountID: 1, Total: decimal.NewFromInt(250), CreatedAt: now.Add(-1 * time.Hour)}
	eng := newEngine(st)

	s, err := eng.RangeSummary(context.Background(), now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Count)
	assert.True(t, s.Sum.Equal(decimal.NewFromInt(250)))
}

func TestRangeSummaryInvertedRange(t *testing.T) {
	st := newFakeState()
	eng := newEngine(st)

	now := time.Now()
	_, err := eng.RangeSummary(context.Background(), now, now.Add(-time.Hour))
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestTopOrders(t *testing.T) {
	st := newFakeState()
	st.orders[1] = domain.Order{ID: 1, Total: decimal.NewFromInt(10)}
	st.orders[2] = domain.Order{ID: 2, Total: decimal.NewFromInt(500)}
	st.orders[3] = domain.Order{ID: 3, Total: decimal.NewFromInt(70)}
	eng := newEngine(st)

	top, err := eng.TopOrders(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(2), top[0].ID)
	assert.Equal(t, int64(3), top[1].ID)

	_, err = eng.TopOrders(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}
