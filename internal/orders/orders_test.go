package orders_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/backend"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/backend/backendtest"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/cart"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/config"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/orders"
)

type shop struct {
	b        *backend.GormBackend
	svc      *orders.Service
	customer uuid.UUID
	meera    uuid.UUID
	ravi     uuid.UUID
	saree    models.Product
	dupatta  models.Product
}

func newShop(t *testing.T) *shop {
	t.Helper()
	ctx := context.Background()
	b := backendtest.New(t)
	s := &shop{b: b, svc: orders.NewService(b, config.DefaultCheckout(), zap.NewNop())}
	s.customer, s.meera, s.ravi = uuid.New(), uuid.New(), uuid.New()

	s.saree = models.Product{WeaverID: s.meera, Name: "Kanjeevaram Silk Saree", Category: "Saree", Price: 5600, Stock: 2, IsVisible: true}
	s.dupatta = models.Product{WeaverID: s.ravi, Name: "Ikat Dupatta", Category: "Dupatta", Price: 1200, Stock: 5, IsVisible: true}
	require.NoError(t, b.InsertRow(ctx, "products", &s.saree))
	require.NoError(t, b.InsertRow(ctx, "products", &s.dupatta))
	return s
}

func (s *shop) order(sareeQty, dupattaQty int) cart.Order {
	var items []cart.Item
	if sareeQty > 0 {
		items = append(items, cart.Item{ProductID: s.saree.ID.String(), Price: 1, Quantity: sareeQty})
	}
	if dupattaQty > 0 {
		items = append(items, cart.Item{ProductID: s.dupatta.ID.String(), Price: 1, Quantity: dupattaQty})
	}
	return cart.Order{
		Items:   items,
		Address: cart.Address{FullName: "Asha", Line1: "1 MG Road", City: "Mysuru", State: "KA", PostalCode: "570001", Phone: "9"},
		Payment: models.PaymentUPI,
	}
}

func (s *shop) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var rows []models.Product
	require.NoError(t, s.b.QueryRows(context.Background(), "products", backend.Query{Filters: backend.Filters{"id": id}}, &rows))
	require.Len(t, rows, 1)
	return rows[0].Stock
}

type pushes struct {
	mu  sync.Mutex
	got map[string][]any
}

func (p *pushes) Push(_ context.Context, userID string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.got == nil {
		p.got = map[string][]any{}
	}
	p.got[userID] = append(p.got[userID], payload)
}

func TestPlaceOrder_TakesStockAndRepricesFromCatalog(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()

	placed, err := s.svc.PlaceOrder(ctx, s.customer.String(), s.order(1, 2))
	require.NoError(t, err)
	assert.Len(t, placed.OrderCode, 8)
	assert.Equal(t, int64(8400), placed.Total, "cart prices are ignored")

	assert.Equal(t, 1, s.stock(t, s.saree.ID))
	assert.Equal(t, 3, s.stock(t, s.dupatta.ID))

	list, err := s.svc.CustomerOrders(ctx, s.customer.String())
	require.NoError(t, err)
	require.Len(t, list, 1)
	o := list[0]
	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.Equal(t, int64(8000), o.Subtotal)
	assert.Equal(t, int64(0), o.Shipping)
	assert.Equal(t, int64(400), o.Tax)
	assert.Len(t, o.Items, 2)
	assert.Contains(t, string(o.ShippingAddress), "Mysuru")
}

func TestPlaceOrder_InsufficientStockRollsBack(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()

	_, err := s.svc.PlaceOrder(ctx, s.customer.String(), s.order(3, 1))
	assert.ErrorIs(t, err, orders.ErrInsufficientStock)

	assert.Equal(t, 2, s.stock(t, s.saree.ID))
	assert.Equal(t, 5, s.stock(t, s.dupatta.ID))
	n, err := s.b.CountRows(ctx, "orders", backend.Query{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPlaceOrder_HiddenProductIsGone(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	_, err := s.b.UpdateRow(ctx, "products", backend.Filters{"id": s.dupatta.ID}, map[string]any{"is_visible": false})
	require.NoError(t, err)

	_, err = s.svc.PlaceOrder(ctx, s.customer.String(), s.order(1, 1))
	assert.ErrorIs(t, err, orders.ErrProductGone)
	assert.Equal(t, 2, s.stock(t, s.saree.ID))
}

func TestWatchNewOrders_NotifiesEachWeaverAfterCommit(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	p := &pushes{}
	stop, err := orders.WatchNewOrders(ctx, s.b, p, zap.NewNop())
	require.NoError(t, err)
	defer stop()

	_, err = s.svc.PlaceOrder(ctx, s.customer.String(), s.order(3, 1))
	require.Error(t, err)
	assert.Empty(t, p.got, "rolled back orders announce nothing")

	placed, err := s.svc.PlaceOrder(ctx, s.customer.String(), s.order(1, 2))
	require.NoError(t, err)

	require.Len(t, p.got[s.meera.String()], 1)
	ev := p.got[s.meera.String()][0].(orders.NewOrderEvent)
	assert.Equal(t, "new_order", ev.Type)
	assert.Equal(t, placed.OrderID, ev.OrderID)
	assert.Equal(t, int64(5600), ev.Amount)

	require.Len(t, p.got[s.ravi.String()], 1)
	assert.Equal(t, 2, p.got[s.ravi.String()][0].(orders.NewOrderEvent).Quantity)
}

func TestWeaverOrdersAndStatus(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	placed, err := s.svc.PlaceOrder(ctx, s.customer.String(), s.order(1, 2))
	require.NoError(t, err)

	mine, err := s.svc.WeaverOrders(ctx, s.ravi.String())
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Len(t, mine[0].Items, 1, "only the weaver's own lines")
	assert.Equal(t, int64(2400), mine[0].Amount)

	_, err = s.svc.UpdateStatus(ctx, uuid.NewString(), placed.OrderID, models.OrderStatusConfirmed)
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)

	_, err = s.svc.UpdateStatus(ctx, s.ravi.String(), placed.OrderID, models.OrderStatusShipped)
	assert.ErrorIs(t, err, orders.ErrBadTransition)

	o, err := s.svc.UpdateStatus(ctx, s.ravi.String(), placed.OrderID, models.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, o.Status)

	o, err = s.svc.UpdateStatus(ctx, s.meera.String(), placed.OrderID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, o.Status)
	assert.Equal(t, 2, s.stock(t, s.saree.ID), "cancel returns stock")
	assert.Equal(t, 5, s.stock(t, s.dupatta.ID))

	_, err = s.svc.UpdateStatus(ctx, s.meera.String(), placed.OrderID, models.OrderStatusConfirmed)
	assert.ErrorIs(t, err, orders.ErrBadTransition)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, orders.CanTransition(models.OrderStatusShipped, models.OrderStatusDelivered))
	assert.False(t, orders.CanTransition(models.OrderStatusShipped, models.OrderStatusCancelled))
	assert.False(t, orders.CanTransition(models.OrderStatusDelivered, models.OrderStatusPending))
	assert.False(t, orders.CanTransition(models.OrderStatusPending, models.OrderStatusDelivered))
}

type unread int

func (u unread) UnreadTotal(context.Context, string) int { return int(u) }

func TestDashboards(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()

	first, err := s.svc.PlaceOrder(ctx, s.customer.String(), s.order(1, 0))
	require.NoError(t, err)
	_, err = s.svc.PlaceOrder(ctx, s.customer.String(), s.order(0, 1))
	require.NoError(t, err)
	_, err = s.svc.UpdateStatus(ctx, s.meera.String(), first.OrderID, models.OrderStatusCancelled)
	require.NoError(t, err)

	cd, err := s.svc.CustomerDashboard(ctx, s.customer.String(), unread(3))
	require.NoError(t, err)
	assert.Equal(t, 2, cd.OrderCount)
	assert.Equal(t, 1, cd.ActiveOrders)
	assert.Equal(t, int64(1200+150+60), cd.TotalSpent)
	assert.Equal(t, 3, cd.UnreadMessages)

	wd, err := s.svc.WeaverDashboard(ctx, s.ravi.String(), unread(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), wd.ProductCount)
	assert.Equal(t, int64(1), wd.VisibleCount)
	assert.Equal(t, 1, wd.OrdersReceived)
	assert.Equal(t, 1, wd.PendingOrders)
	assert.Equal(t, int64(1200), wd.Revenue)
	assert.Equal(t, 1, wd.UnreadMessages)

	md, err := s.svc.WeaverDashboard(ctx, s.meera.String(), nil)
	require.NoError(t, err)
	assert.Zero(t, md.Revenue, "cancelled orders earn nothing")
	assert.Equal(t, 1, md.OrdersReceived)
}
