// Package cart holds each shopper's cart and walks it through the checkout
// wizard: cart review, shipping address, payment and order placement.
package cart

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/config"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
)

var (
	ErrAlreadyInCart     = errors.New("product is already in your cart")
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrNotInCart         = errors.New("product is not in your cart")
	ErrEmptyCart         = errors.New("your cart is empty")
	ErrAddressIncomplete = errors.New("shipping address is incomplete")
	ErrInvalidPayment    = errors.New("payment method must be card, upi or cod")
	ErrPaymentRequired   = errors.New("select a payment method")
	ErrWrongStep         = errors.New("action not allowed at this checkout step")
	ErrSubmitting        = errors.New("order is already being placed")
)

type Step string

const (
	StepCart       Step = "cart"
	StepShipping   Step = "shipping"
	StepPayment    Step = "payment"
	StepSubmitting Step = "submitting"
	StepComplete   Step = "complete"
)

type Item struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	Quantity   int    `json:"quantity"`
	Image      string `json:"image"`
	WeaverID   string `json:"weaver_id"`
	WeaverName string `json:"weaver_name"`
}

type Address struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"address_line1"`
	Line2      string `json:"address_line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}

// Missing lists the json names of required fields that are blank.
func (a Address) Missing() []string {
	var out []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			out = append(out, name)
		}
	}
	check("full_name", a.FullName)
	check("address_line1", a.Line1)
	check("city", a.City)
	check("state", a.State)
	check("postal_code", a.PostalCode)
	check("phone", a.Phone)
	return out
}

// AddressError names the blank required fields.
type AddressError struct {
	Missing []string
}

func (e *AddressError) Error() string {
	return ErrAddressIncomplete.Error() + ": " + strings.Join(e.Missing, ", ")
}

func (e *AddressError) Is(target error) bool { return target == ErrAddressIncomplete }

// Order is what the placer receives when the shopper confirms payment.
type Order struct {
	Items   []Item
	Address Address
	Payment models.PaymentMethod
	Totals  Totals
}

type Placed struct {
	OrderID   string `json:"order_id"`
	OrderCode string `json:"order_code"`
	Total     int64  `json:"total"`
}

// Placer turns a confirmed checkout into a stored order.
type Placer interface {
	PlaceOrder(ctx context.Context, customerID string, o Order) (Placed, error)
}

// Snapshot is the read model of a checkout. Totals are derived on every
// call.
type Snapshot struct {
	Step    Step                 `json:"step"`
	Items   []Item               `json:"items"`
	Totals  Totals               `json:"totals"`
	Address Address              `json:"address"`
	Payment models.PaymentMethod `json:"payment,omitempty"`
	Error   string               `json:"error,omitempty"`
	Order   *Placed              `json:"order,omitempty"`
}

// Checkout is the linear wizard Cart -> Shipping -> Payment -> Submitting ->
// Complete. Back returns exactly one step. Items may change at any step
// before submission without moving the wizard; totals follow.
type Checkout struct {
	pricing config.Checkout

	mu      sync.Mutex
	step    Step
	items   []Item
	address Address
	payment models.PaymentMethod
	lastErr string
	placed  *Placed
}

func NewCheckout(items []Item, pricing config.Checkout) *Checkout {
	c := &Checkout{pricing: pricing, step: StepCart}
	for _, it := range items {
		if it.ProductID == "" || it.Quantity < 1 {
			continue
		}
		c.items = append(c.items, it)
	}
	return c
}

func (c *Checkout) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.itemsLocked()
	return Snapshot{
		Step:    c.step,
		Items:   items,
		Totals:  ComputeTotals(items, c.pricing),
		Address: c.address,
		Payment: c.payment,
		Error:   c.lastErr,
		Order:   c.placed,
	}
}

func (c *Checkout) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemsLocked()
}

func (c *Checkout) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *Checkout) itemsLocked() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// editable starts a new cart after a completed order and reports whether
// items may change.
func (c *Checkout) editable() error {
	switch c.step {
	case StepSubmitting:
		return ErrSubmitting
	case StepComplete:
		c.step = StepCart
		c.placed = nil
		c.lastErr = ""
	}
	return nil
}

// Add puts one unit of a product in the cart. stock is the product's current
// stock level.
func (c *Checkout) Add(it Item, stock int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	for _, existing := range c.items {
		if existing.ProductID == it.ProductID {
			return ErrAlreadyInCart
		}
	}
	if stock < 1 {
		return ErrOutOfStock
	}
	it.Quantity = 1
	c.items = append(c.items, it)
	return nil
}

// Remove reports whether the product was in the cart.
func (c *Checkout) Remove(productID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return false, err
	}
	for i, it := range c.items {
		if it.ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// SetQuantity replaces the quantity in place. n < 1 and unknown products
// leave the cart unchanged.
func (c *Checkout) SetQuantity(productID string, n int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return false, err
	}
	if n < 1 {
		return false, nil
	}
	for i := range c.items {
		if c.items[i].ProductID == productID {
			changed := c.items[i].Quantity != n
			c.items[i].Quantity = n
			return changed, nil
		}
	}
	return false, nil
}

func (c *Checkout) SetAddress(a Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepShipping {
		return ErrWrongStep
	}
	c.address = a
	return nil
}

func (c *Checkout) SelectPayment(m models.PaymentMethod) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepPayment {
		return ErrWrongStep
	}
	if !m.Valid() {
		return ErrInvalidPayment
	}
	c.payment = m
	return nil
}

// Proceed moves one step forward from Cart or Shipping.
func (c *Checkout) Proceed() (Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.step {
	case StepCart:
		if len(c.items) == 0 {
			return c.step, ErrEmptyCart
		}
		c.step = StepShipping
	case StepShipping:
		if missing := c.address.Missing(); len(missing) > 0 {
			return c.step, &AddressError{Missing: missing}
		}
		c.step = StepPayment
	default:
		return c.step, ErrWrongStep
	}
	c.lastErr = ""
	return c.step, nil
}

// Back returns exactly one step from Shipping or Payment.
func (c *Checkout) Back() (Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.step {
	case StepShipping:
		c.step = StepCart
	case StepPayment:
		c.step = StepShipping
	default:
		return c.step, ErrWrongStep
	}
	c.lastErr = ""
	return c.step, nil
}

// PlaceOrder submits the checkout. While the placer runs the checkout sits
// in Submitting and rejects a second submit. A failure returns to Payment
// with the cart intact; success clears the cart and completes the flow.
func (c *Checkout) PlaceOrder(ctx context.Context, customerID string, placer Placer) (Placed, error) {
	c.mu.Lock()
	switch c.step {
	case StepPayment:
	case StepSubmitting:
		c.mu.Unlock()
		return Placed{}, ErrSubmitting
	default:
		c.mu.Unlock()
		return Placed{}, ErrWrongStep
	}
	if c.payment == "" {
		c.mu.Unlock()
		return Placed{}, ErrPaymentRequired
	}
	if len(c.items) == 0 {
		c.mu.Unlock()
		return Placed{}, ErrEmptyCart
	}
	items := c.itemsLocked()
	order := Order{
		Items:   items,
		Address: c.address,
		Payment: c.payment,
		Totals:  ComputeTotals(items, c.pricing),
	}
	c.step = StepSubmitting
	c.lastErr = ""
	c.mu.Unlock()

	placed, err := placer.PlaceOrder(ctx, customerID, order)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.step = StepPayment
		c.lastErr = err.Error()
		return Placed{}, err
	}
	c.step = StepComplete
	c.items = nil
	c.address = Address{}
	c.payment = ""
	c.placed = &placed
	return placed, nil
}

// restore puts items back after a failed save.
func (c *Checkout) restore(items []Item) {
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}
