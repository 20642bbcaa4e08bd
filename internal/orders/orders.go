// Package orders stores placed orders and serves order history, weaver
// fulfilment and the role dashboards.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/backend"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/cart"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/config"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
)

var (
	ErrInsufficientStock = errors.New("not enough stock for one of the items")
	ErrProductGone       = errors.New("a product in your cart is no longer available")
	ErrOrderNotFound     = errors.New("order not found")
	ErrBadTransition     = errors.New("order cannot move to that status")
	ErrStatusConflict    = errors.New("order status changed meanwhile, reload and retry")
	ErrEmptyOrder        = errors.New("order has no items")
)

const (
	ordersTable     = "orders"
	orderItemsTable = "order_items"
	productsTable   = "products"
)

// next lists the statuses a weaver may move an order to.
var next = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:   {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:   {models.OrderStatusDelivered},
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Service struct {
	client  backend.Client
	pricing config.Checkout
	log     *zap.Logger
}

func NewService(client backend.Client, pricing config.Checkout, logger *zap.Logger) *Service {
	return &Service{client: client, pricing: pricing, log: logger}
}

// PlaceOrder implements cart.Placer. Inside one transaction it takes stock
// for every line, then writes the order and its items. Prices are re-read
// from the products table.
func (s *Service) PlaceOrder(ctx context.Context, customerID string, o cart.Order) (cart.Placed, error) {
	cid, err := uuid.Parse(customerID)
	if err != nil {
		return cart.Placed{}, fmt.Errorf("customer id: %w", err)
	}
	if len(o.Items) == 0 {
		return cart.Placed{}, ErrEmptyOrder
	}
	if !o.Payment.Valid() {
		return cart.Placed{}, cart.ErrInvalidPayment
	}
	address, err := json.Marshal(o.Address)
	if err != nil {
		return cart.Placed{}, err
	}

	var order models.Order
	err = s.client.Transaction(ctx, func(tx backend.Client) error {
		lines := make([]cart.Item, 0, len(o.Items))
		items := make([]models.OrderItem, 0, len(o.Items))
		for _, it := range o.Items {
			p, err := takeStock(ctx, tx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			line := it
			line.Price = p.Price
			lines = append(lines, line)
			items = append(items, models.OrderItem{
				ProductID: p.ID,
				WeaverID:  p.WeaverID,
				Name:      p.Name,
				Price:     p.Price,
				Quantity:  it.Quantity,
				Image:     p.ImageURL,
			})
		}

		totals := cart.ComputeTotals(lines, s.pricing)
		order = models.Order{
			CustomerID:      cid,
			Status:          models.OrderStatusPending,
			PaymentMethod:   o.Payment,
			ShippingAddress: datatypes.JSON(address),
			Subtotal:        totals.Subtotal,
			Shipping:        totals.Shipping,
			Tax:             totals.Tax,
			Total:           totals.Total,
		}
		if err := tx.InsertRow(ctx, ordersTable, &order); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
			if err := tx.InsertRow(ctx, orderItemsTable, &items[i]); err != nil {
				return err
			}
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return cart.Placed{}, err
	}

	s.log.Info("order stored",
		zap.String("order", order.OrderCode),
		zap.String("customer", customerID),
		zap.Int("items", len(order.Items)),
		zap.Int64("total", order.Total))
	return cart.Placed{OrderID: order.ID.String(), OrderCode: order.OrderCode, Total: order.Total}, nil
}

// takeStock decrements a visible product's stock by qty. The update locks
// the row, so reading it back afterwards sees every earlier decrement.
func takeStock(ctx context.Context, tx backend.Client, productID string, qty int) (models.Product, error) {
	pid, err := uuid.Parse(productID)
	if err != nil || qty < 1 {
		return models.Product{}, ErrProductGone
	}
	filters := backend.Filters{"id": pid, "is_visible": true}
	n, err := tx.UpdateRow(ctx, productsTable, filters, map[string]any{
		"stock":      backend.Expr("stock - ?", qty),
		"updated_at": time.Now(),
	})
	if err != nil {
		return models.Product{}, err
	}
	if n == 0 {
		return models.Product{}, ErrProductGone
	}
	var rows []models.Product
	if err := tx.QueryRows(ctx, productsTable, backend.Query{Filters: backend.Filters{"id": pid}, Limit: 1}, &rows); err != nil {
		return models.Product{}, err
	}
	if len(rows) == 0 {
		return models.Product{}, ErrProductGone
	}
	if rows[0].Stock < 0 {
		return models.Product{}, fmt.Errorf("%w: %s", ErrInsufficientStock, rows[0].Name)
	}
	return rows[0], nil
}

// CustomerOrders returns the customer's orders, newest first, with items.
func (s *Service) CustomerOrders(ctx context.Context, customerID string) ([]models.Order, error) {
	cid, err := uuid.Parse(customerID)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	orders := make([]models.Order, 0)
	q := backend.Query{Filters: backend.Filters{"customer_id": cid}, Order: "created_at desc"}
	if err := s.client.QueryRows(ctx, ordersTable, q, &orders); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	var items []models.OrderItem
	if err := s.client.QueryRows(ctx, orderItemsTable, backend.Query{Filters: backend.Filters{"order_id": ids}}, &items); err != nil {
		return nil, err
	}
	byOrder := map[uuid.UUID][]models.OrderItem{}
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return orders, nil
}

// WeaverOrder is an order as one weaver sees it: only their own lines.
type WeaverOrder struct {
	ID            uuid.UUID            `json:"id"`
	OrderCode     string               `json:"order_code"`
	CustomerID    uuid.UUID            `json:"customer_id"`
	Status        models.OrderStatus   `json:"status"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	ShippingAddr  datatypes.JSON       `json:"shipping_address"`
	Items         []models.OrderItem   `json:"items"`
	Amount        int64                `json:"amount"`
	CreatedAt     time.Time            `json:"created_at"`
}

// WeaverOrders returns orders containing the weaver's products, newest
// first.
func (s *Service) WeaverOrders(ctx context.Context, weaverID string) ([]WeaverOrder, error) {
	wid, err := uuid.Parse(weaverID)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	var items []models.OrderItem
	if err := s.client.QueryRows(ctx, orderItemsTable, backend.Query{Filters: backend.Filters{"weaver_id": wid}}, &items); err != nil {
		return nil, err
	}
	out := make([]WeaverOrder, 0)
	if len(items) == 0 {
		return out, nil
	}

	byOrder := map[uuid.UUID][]models.OrderItem{}
	ids := make([]uuid.UUID, 0)
	for _, it := range items {
		if _, ok := byOrder[it.OrderID]; !ok {
			ids = append(ids, it.OrderID)
		}
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	var orders []models.Order
	if err := s.client.QueryRows(ctx, ordersTable, backend.Query{Filters: backend.Filters{"id": ids}, Order: "created_at desc"}, &orders); err != nil {
		return nil, err
	}
	for _, o := range orders {
		wo := WeaverOrder{
			ID:            o.ID,
			OrderCode:     o.OrderCode,
			CustomerID:    o.CustomerID,
			Status:        o.Status,
			PaymentMethod: o.PaymentMethod,
			ShippingAddr:  o.ShippingAddress,
			Items:         byOrder[o.ID],
			CreatedAt:     o.CreatedAt,
		}
		for _, it := range wo.Items {
			wo.Amount += it.Price * int64(it.Quantity)
		}
		out = append(out, wo)
	}
	return out, nil
}

// UpdateStatus moves an order containing the weaver's items along its
// lifecycle. Cancelling puts the stock back.
func (s *Service) UpdateStatus(ctx context.Context, weaverID, orderID string, to models.OrderStatus) (models.Order, error) {
	wid, err1 := uuid.Parse(weaverID)
	oid, err2 := uuid.Parse(orderID)
	if err1 != nil || err2 != nil {
		return models.Order{}, ErrOrderNotFound
	}

	mine, err := s.client.CountRows(ctx, orderItemsTable, backend.Query{Filters: backend.Filters{"order_id": oid, "weaver_id": wid}})
	if err != nil {
		return models.Order{}, err
	}
	if mine == 0 {
		return models.Order{}, ErrOrderNotFound
	}

	var order models.Order
	err = s.client.Transaction(ctx, func(tx backend.Client) error {
		var rows []models.Order
		if err := tx.QueryRows(ctx, ordersTable, backend.Query{Filters: backend.Filters{"id": oid}, Limit: 1}, &rows); err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrOrderNotFound
		}
		order = rows[0]
		if !CanTransition(order.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrBadTransition, order.Status, to)
		}

		now := time.Now()
		n, err := tx.UpdateRow(ctx, ordersTable, backend.Filters{"id": oid, "status": string(order.Status)}, map[string]any{
			"status":     string(to),
			"updated_at": now,
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStatusConflict
		}

		if to == models.OrderStatusCancelled {
			var items []models.OrderItem
			if err := tx.QueryRows(ctx, orderItemsTable, backend.Query{Filters: backend.Filters{"order_id": oid}}, &items); err != nil {
				return err
			}
			for _, it := range items {
				if _, err := tx.UpdateRow(ctx, productsTable, backend.Filters{"id": it.ProductID}, map[string]any{
					"stock": backend.Expr("stock + ?", it.Quantity),
				}); err != nil {
					return err
				}
			}
		}
		order.Status = to
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	s.log.Info("order status changed",
		zap.String("order", order.OrderCode),
		zap.String("weaver", weaverID),
		zap.String("status", string(to)))
	return order, nil
}
