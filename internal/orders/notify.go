package orders

import (
	"context"

	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/backend"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
)

// Pusher delivers a realtime payload to every session of a user.
type Pusher interface {
	Push(ctx context.Context, userID string, payload any)
}

type NewOrderEvent struct {
	Type      string `json:"type"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Amount    int64  `json:"amount"`
}

// WatchNewOrders tells weavers about each new order line for their
// products. The returned func stops watching.
func WatchNewOrders(ctx context.Context, client backend.Client, push Pusher, logger *zap.Logger) (func(), error) {
	return client.Subscribe(ctx, orderItemsTable, []backend.EventType{backend.EventInsert}, func(ev backend.Event) {
		var it models.OrderItem
		if err := ev.Decode(&it); err != nil {
			logger.Warn("order item event not decodable", zap.Error(err))
			return
		}
		push.Push(ctx, it.WeaverID.String(), NewOrderEvent{
			Type:      "new_order",
			OrderID:   it.OrderID.String(),
			ProductID: it.ProductID.String(),
			Name:      it.Name,
			Quantity:  it.Quantity,
			Amount:    it.Price * int64(it.Quantity),
		})
	})
}
