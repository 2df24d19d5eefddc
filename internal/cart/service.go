package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tokoanjar/pos-api/internal/catalog"
	"github.com/tokoanjar/pos-api/internal/common"
	"github.com/tokoanjar/pos-api/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Item is a single cart line. Photocopy lines have no product reference;
// their unit price comes from the copy tier table unless a custom price is set.
type Item struct {
	ID          uuid.UUID      `json:"id"`
	ProductID   *uuid.UUID     `json:"productId,omitempty"`
	Name        string         `json:"name"`
	Category    string         `json:"category,omitempty"`
	Qty         int            `json:"qty"`
	SellPrice   pricing.Money  `json:"sellPrice"`
	CostPrice   pricing.Money  `json:"costPrice"`
	CustomPrice *pricing.Money `json:"customPrice,omitempty"`
	Photocopy   bool           `json:"photocopy"`
}

// Cart is the full cart document stored in Redis.
type Cart struct {
	ID        uuid.UUID `json:"id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type productGetter interface {
	Get(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// Service keeps carts in Redis so unfinished sales survive restarts
// without ever touching the sales tables.
type Service struct {
	R             *redis.Client
	Products      productGetter
	TTL           time.Duration
	CopyBasePrice pricing.Money
	Now           func() time.Time
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cartKey(id uuid.UUID) string { return "cart:" + id.String() }

// Create opens an empty cart and returns it.
func (s *Service) Create(ctx context.Context) (Cart, error) {
	if s == nil || s.R == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	now := s.now()
	c := Cart{ID: uuid.New(), Items: []Item{}, CreatedAt: now, UpdatedAt: now}
	if err := s.save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Get loads a cart by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Cart, error) {
	if s == nil || s.R == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	data, err := s.R.Get(ctx, cartKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, err
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, c Cart) error {
	c.UpdatedAt = s.now()
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return s.R.Set(ctx, cartKey(c.ID), data, s.ttl()).Err()
}

// AddProductInput adds a catalog product line. CustomPrice overrides the
// catalog sell price for haggled sales.
type AddProductInput struct {
	ProductID   uuid.UUID      `json:"productId"`
	Qty         int            `json:"qty"`
	CustomPrice *pricing.Money `json:"customPrice,omitempty"`
}

// AddProduct inserts or increments a product line. Prices are captured from
// the catalog at add time so later edits do not reprice open carts.
func (s *Service) AddProduct(ctx context.Context, cartID uuid.UUID, in AddProductInput) (Cart, error) {
	if in.Qty <= 0 {
		return Cart{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	if in.CustomPrice != nil && *in.CustomPrice <= 0 {
		return Cart{}, fmt.Errorf("custom price must be positive: %w", ErrInvalidInput)
	}
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	for i := range c.Items {
		it := &c.Items[i]
		if !it.Photocopy && it.ProductID != nil && *it.ProductID == in.ProductID {
			it.Qty += in.Qty
			if in.CustomPrice != nil {
				it.CustomPrice = in.CustomPrice
			}
			if err := s.save(ctx, c); err != nil {
				return Cart{}, err
			}
			return c, nil
		}
	}
	product, err := s.Products.Get(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Cart{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return Cart{}, err
	}
	if product.Photocopy {
		return Cart{}, fmt.Errorf("photocopy goes in as a copy line, not a product: %w", ErrInvalidInput)
	}
	pid := product.ID
	c.Items = append(c.Items, Item{
		ID:          uuid.New(),
		ProductID:   &pid,
		Name:        product.Name,
		Category:    product.Category,
		Qty:         in.Qty,
		SellPrice:   product.SellPrice,
		CostPrice:   product.CostPrice,
		CustomPrice: in.CustomPrice,
	})
	if err := s.save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// AddCopyInput adds a photocopy line.
type AddCopyInput struct {
	Sheets      int            `json:"sheets"`
	Label       string         `json:"label"`
	CustomPrice *pricing.Money `json:"customPrice,omitempty"`
}

// AddCopy appends a photocopy line priced by sheet-count tier.
func (s *Service) AddCopy(ctx context.Context, cartID uuid.UUID, in AddCopyInput) (Cart, error) {
	if in.Sheets <= 0 {
		return Cart{}, fmt.Errorf("sheets must be positive: %w", ErrInvalidInput)
	}
	if in.CustomPrice != nil && *in.CustomPrice <= 0 {
		return Cart{}, fmt.Errorf("custom price must be positive: %w", ErrInvalidInput)
	}
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	label := strings.TrimSpace(in.Label)
	if label == "" {
		label = "Fotocopy"
	}
	unit, _ := pricing.CopyPrice(in.Sheets, s.CopyBasePrice, in.CustomPrice)
	c.Items = append(c.Items, Item{
		ID:          uuid.New(),
		Name:        label,
		Qty:         in.Sheets,
		SellPrice:   unit,
		CustomPrice: in.CustomPrice,
		Photocopy:   true,
	})
	if err := s.save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// UpdateItem changes a line quantity. A quantity of zero or less removes the
// line. Photocopy lines are repriced against the tier table unless a custom
// price pins them.
func (s *Service) UpdateItem(ctx context.Context, cartID, itemID uuid.UUID, qty int) (Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	found := false
	out := c.Items[:0]
	for _, it := range c.Items {
		if it.ID != itemID {
			out = append(out, it)
			continue
		}
		found = true
		if qty <= 0 {
			continue
		}
		it.Qty = qty
		if it.Photocopy {
			it.SellPrice, _ = pricing.CopyPrice(qty, s.CopyBasePrice, it.CustomPrice)
		}
		out = append(out, it)
	}
	if !found {
		return Cart{}, common.NewAppError("NOT_FOUND", "cart item not found", http.StatusNotFound, ErrNotFound)
	}
	c.Items = out
	if err := s.save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// RemoveItem drops a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (Cart, error) {
	return s.UpdateItem(ctx, cartID, itemID, 0)
}

// Clear deletes the cart document.
func (s *Service) Clear(ctx context.Context, cartID uuid.UUID) error {
	if s == nil || s.R == nil {
		return errors.New("cart service not configured")
	}
	return s.R.Del(ctx, cartKey(cartID)).Err()
}

// Quote totals the cart with an optional percent discount applied.
func (s *Service) Quote(ctx context.Context, cartID uuid.UUID, discountPct float64) (Cart, pricing.Summary, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, pricing.Summary{}, err
	}
	summary := Summarize(c, discountPct, pricing.Policy{})
	return c, summary, nil
}

// Summarize computes totals for a cart snapshot.
func Summarize(c Cart, discountPct float64, policy pricing.Policy) pricing.Summary {
	lines := make([]pricing.Line, 0, len(c.Items))
	var subtotal pricing.Money
	for _, it := range c.Items {
		line := pricing.Line{
			Qty:        it.Qty,
			SellPrice:  it.SellPrice,
			CostPrice:  it.CostPrice,
			FinalPrice: it.CustomPrice,
			Photocopy:  it.Photocopy,
		}
		lines = append(lines, line)
		subtotal += line.UnitPrice() * pricing.Money(it.Qty)
	}
	discount := pricing.PercentDiscount(subtotal, discountPct)
	return pricing.Compute(lines, discount, false, policy)
}
