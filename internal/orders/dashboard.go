package orders

import (
	"context"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/backend"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
)

// UnreadCounter reports unread chat messages for a user.
type UnreadCounter interface {
	UnreadTotal(ctx context.Context, userID string) int
}

type CustomerDashboard struct {
	OrderCount     int            `json:"order_count"`
	ActiveOrders   int            `json:"active_orders"`
	TotalSpent     int64          `json:"total_spent"`
	UnreadMessages int            `json:"unread_messages"`
	RecentOrders   []models.Order `json:"recent_orders"`
}

const recentOrders = 5

func (s *Service) CustomerDashboard(ctx context.Context, customerID string, chat UnreadCounter) (CustomerDashboard, error) {
	orders, err := s.CustomerOrders(ctx, customerID)
	if err != nil {
		return CustomerDashboard{}, err
	}
	d := CustomerDashboard{OrderCount: len(orders), RecentOrders: orders}
	for _, o := range orders {
		switch o.Status {
		case models.OrderStatusCancelled:
			continue
		case models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusShipped:
			d.ActiveOrders++
		}
		d.TotalSpent += o.Total
	}
	if len(d.RecentOrders) > recentOrders {
		d.RecentOrders = d.RecentOrders[:recentOrders]
	}
	if chat != nil {
		d.UnreadMessages = chat.UnreadTotal(ctx, customerID)
	}
	return d, nil
}

type WeaverDashboard struct {
	ProductCount   int64         `json:"product_count"`
	VisibleCount   int64         `json:"visible_count"`
	OutOfStock     int64         `json:"out_of_stock"`
	OrdersReceived int           `json:"orders_received"`
	PendingOrders  int           `json:"pending_orders"`
	Revenue        int64         `json:"revenue"`
	UnreadMessages int           `json:"unread_messages"`
	RecentOrders   []WeaverOrder `json:"recent_orders"`
}

// WeaverDashboard sums the weaver's catalog and sales. Revenue counts the
// weaver's own lines of orders that were not cancelled.
func (s *Service) WeaverDashboard(ctx context.Context, weaverID string, chat UnreadCounter) (WeaverDashboard, error) {
	wid, err := uuid.Parse(weaverID)
	if err != nil {
		return WeaverDashboard{}, ErrOrderNotFound
	}
	var d WeaverDashboard
	if d.ProductCount, err = s.client.CountRows(ctx, productsTable, backend.Query{Filters: backend.Filters{"weaver_id": wid}}); err != nil {
		return WeaverDashboard{}, err
	}
	if d.VisibleCount, err = s.client.CountRows(ctx, productsTable, backend.Query{Filters: backend.Filters{"weaver_id": wid, "is_visible": true}}); err != nil {
		return WeaverDashboard{}, err
	}
	if d.OutOfStock, err = s.client.CountRows(ctx, productsTable, backend.Query{Filters: backend.Filters{"weaver_id": wid, "stock": 0}}); err != nil {
		return WeaverDashboard{}, err
	}

	orders, err := s.WeaverOrders(ctx, weaverID)
	if err != nil {
		return WeaverDashboard{}, err
	}
	d.OrdersReceived = len(orders)
	for _, o := range orders {
		if o.Status == models.OrderStatusPending {
			d.PendingOrders++
		}
		if o.Status != models.OrderStatusCancelled {
			d.Revenue += o.Amount
		}
	}
	d.RecentOrders = orders
	if len(d.RecentOrders) > recentOrders {
		d.RecentOrders = d.RecentOrders[:recentOrders]
	}
	if chat != nil {
		d.UnreadMessages = chat.UnreadTotal(ctx, weaverID)
	}
	return d, nil
}
