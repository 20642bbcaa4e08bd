package cart

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/config"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
)

// ProductSource turns a product id into a cart line and its current stock.
type ProductSource interface {
	LineItem(ctx context.Context, productID string) (Item, int, error)
}

type session struct {
	mu sync.Mutex // serialises mutate-and-save
	c  *Checkout
}

// Service keeps one checkout per signed-in user, loaded lazily from the
// Store and saved back after every cart change.
type Service struct {
	store    Store
	products ProductSource
	placer   Placer
	pricing  config.Checkout
	log      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewService(store Store, products ProductSource, placer Placer, pricing config.Checkout, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		products: products,
		placer:   placer,
		pricing:  pricing,
		log:      logger,
		sessions: make(map[string]*session),
	}
}

// session returns the user's checkout, loading it from the store on first
// use. The load runs outside s.mu so a slow store only delays its own user.
func (s *Service) session(ctx context.Context, userID string) (*session, error) {
	s.mu.Lock()
	ss, ok := s.sessions[userID]
	s.mu.Unlock()
	if ok {
		return ss, nil
	}

	items, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ss, ok := s.sessions[userID]; ok {
		return ss, nil
	}
	ss = &session{c: NewCheckout(items, s.pricing)}
	s.sessions[userID] = ss
	return ss, nil
}

func (s *Service) View(ctx context.Context, userID string) (Snapshot, error) {
	ss, err := s.session(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return ss.c.Snapshot(), nil
}

// mutate applies fn and saves the items. A failed save puts the previous
// items back.
func (s *Service) mutate(ctx context.Context, userID string, fn func(c *Checkout) (bool, error)) (Snapshot, error) {
	ss, err := s.session(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	prev := ss.c.Items()
	changed, err := fn(ss.c)
	if err != nil {
		return ss.c.Snapshot(), err
	}
	if changed {
		if err := s.store.Save(ctx, userID, ss.c.Items()); err != nil {
			ss.c.restore(prev)
			s.log.Warn("save cart", zap.String("user", userID), zap.Error(err))
			return ss.c.Snapshot(), fmt.Errorf("save cart: %w", err)
		}
	}
	return ss.c.Snapshot(), nil
}

func (s *Service) Add(ctx context.Context, userID, productID string) (Snapshot, error) {
	item, stock, err := s.products.LineItem(ctx, productID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.mutate(ctx, userID, func(c *Checkout) (bool, error) {
		return true, c.Add(item, stock)
	})
}

func (s *Service) Remove(ctx context.Context, userID, productID string) (Snapshot, error) {
	return s.mutate(ctx, userID, func(c *Checkout) (bool, error) {
		return c.Remove(productID)
	})
}

func (s *Service) SetQuantity(ctx context.Context, userID, productID string, n int) (Snapshot, error) {
	return s.mutate(ctx, userID, func(c *Checkout) (bool, error) {
		return c.SetQuantity(productID, n)
	})
}

func (s *Service) Next(ctx context.Context, userID string) (Snapshot, error) {
	return s.mutate(ctx, userID, func(c *Checkout) (bool, error) {
		_, err := c.Proceed()
		return false, err
	})
}

func (s *Service) Back(ctx context.Context, userID string) (Snapshot, error) {
	return s.mutate(ctx, userID, func(c *Checkout) (bool, error) {
		_, err := c.Back()
		return false, err
	})
}

func (s *Service) SetAddress(ctx context.Context, userID string, a Address) (Snapshot, error) {
	return s.mutate(ctx, userID, func(c *Checkout) (bool, error) {
		return false, c.SetAddress(a)
	})
}

func (s *Service) SelectPayment(ctx context.Context, userID string, m models.PaymentMethod) (Snapshot, error) {
	return s.mutate(ctx, userID, func(c *Checkout) (bool, error) {
		return false, c.SelectPayment(m)
	})
}

// Place submits the user's checkout and clears the stored cart once the
// order exists.
func (s *Service) Place(ctx context.Context, userID string) (Placed, Snapshot, error) {
	ss, err := s.session(ctx, userID)
	if err != nil {
		return Placed{}, Snapshot{}, err
	}
	placed, err := ss.c.PlaceOrder(ctx, userID, s.placer)
	if err != nil {
		return Placed{}, ss.c.Snapshot(), err
	}
	if err := s.store.Clear(ctx, userID); err != nil {
		s.log.Warn("clear stored cart after order", zap.String("user", userID), zap.String("order", placed.OrderCode), zap.Error(err))
	}
	s.log.Info("order placed",
		zap.String("user", userID),
		zap.String("order", placed.OrderCode),
		zap.Int64("total", placed.Total))
	return placed, ss.c.Snapshot(), nil
}

// Forget drops the in-memory checkout, e.g. on sign out. The stored cart
// stays.
func (s *Service) Forget(userID string) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}
