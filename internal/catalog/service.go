package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tokoanjar/pos-api/internal/common"
	"github.com/tokoanjar/pos-api/internal/obs"
	"github.com/tokoanjar/pos-api/internal/pricing"
	"github.com/tokoanjar/pos-api/internal/units"
)

type storeProvider interface {
	List(ctx context.Context, params ListParams) ([]Product, int64, error)
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	GetByName(ctx context.Context, name string) (Product, error)
	GetByBarcode(ctx context.Context, code string) (Product, error)
	Insert(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (Product, error)
	ListLowStock(ctx context.Context, threshold int) ([]Product, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// Service orchestrates catalog queries, stock bookkeeping, and caching.
type Service struct {
	store             storeProvider
	cache             *Cache
	validate          *validator.Validate
	defaultLimit      int
	maxLimit          int
	lowStockThreshold int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store             storeProvider
	Cache             *Cache
	Validate          *validator.Validate
	DefaultLimit      int
	MaxLimit          int
	LowStockThreshold int
}

// NewService constructs a Service with sane paging defaults.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		store:             cfg.Store,
		cache:             cfg.Cache,
		validate:          cfg.Validate,
		defaultLimit:      cfg.DefaultLimit,
		maxLimit:          cfg.MaxLimit,
		lowStockThreshold: cfg.LowStockThreshold,
	}
	if s.validate == nil {
		s.validate = validator.New()
	}
	if s.defaultLimit <= 0 {
		s.defaultLimit = 20
	}
	if s.maxLimit <= 0 {
		s.maxLimit = 100
	}
	if s.lowStockThreshold <= 0 {
		s.lowStockThreshold = 5
	}
	return s
}

// ProductView is the API shape for a product, including the human stock label.
type ProductView struct {
	Product
	StockDisplay string         `json:"stockDisplay"`
	Units        []units.Option `json:"units"`
}

func toView(p Product) ProductView {
	return ProductView{
		Product:      p,
		StockDisplay: units.Display(p.Stock, p.Category),
		Units:        units.Options(p.Category),
	}
}

// ListResult is a page of products.
type ListResult struct {
	Items []ProductView `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// List returns a filtered, paginated product page. Unfiltered first pages are
// served from cache.
func (s *Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = s.defaultLimit
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}

	cacheKey := ""
	if params.Query == "" && params.Category == "" {
		cacheKey = fmt.Sprintf("catalog:list:p%d:l%d", params.Page, params.Limit)
		var cached ListResult
		if ok, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	items, total, err := s.store.List(ctx, params)
	if err != nil {
		return ListResult{}, err
	}
	views := make([]ProductView, 0, len(items))
	for _, p := range items {
		views = append(views, toView(p))
	}
	result := ListResult{Items: views, Total: total, Page: params.Page, Limit: params.Limit}
	if cacheKey != "" {
		_ = s.cache.SetJSON(ctx, cacheKey, result)
	}
	return result, nil
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (ProductView, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return ProductView{}, wrapNotFound(err)
	}
	return toView(p), nil
}

// GetByBarcode resolves a scanned barcode to a product.
func (s *Service) GetByBarcode(ctx context.Context, code string) (ProductView, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return ProductView{}, common.NewAppError("VALIDATION", "barcode is required", http.StatusBadRequest, nil)
	}
	p, err := s.store.GetByBarcode(ctx, code)
	if err != nil {
		return ProductView{}, wrapNotFound(err)
	}
	return toView(p), nil
}

// CreateInput is the payload for product creation.
type CreateInput struct {
	Name      string        `json:"name" validate:"required,min=1,max=200"`
	Barcode   string        `json:"barcode" validate:"max=64"`
	Category  string        `json:"category" validate:"required,min=1,max=100"`
	SellPrice pricing.Money `json:"sellPrice" validate:"gte=0"`
	CostPrice pricing.Money `json:"costPrice" validate:"gte=0"`
	Stock     int           `json:"stock" validate:"gte=0"`
	Unit      string        `json:"unit"`
	Photocopy bool          `json:"isPhotocopy"`
}

// Create inserts a new product. When a product with the same name already
// exists (case-insensitive) the incoming stock is merged into it as a restock
// and its prices are refreshed instead of creating a duplicate row.
func (s *Service) Create(ctx context.Context, in CreateInput) (ProductView, bool, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if err := s.validate.Struct(in); err != nil {
		return ProductView{}, false, common.NewAppError("VALIDATION", "invalid product payload", http.StatusBadRequest, err)
	}
	addStock := in.Stock * units.Multiplier(in.Unit, in.Category)
	if in.Photocopy {
		addStock = 0
	}
	var barcode *string
	if code := strings.TrimSpace(in.Barcode); code != "" {
		barcode = &code
	}

	existing, err := s.store.GetByName(ctx, in.Name)
	switch {
	case err == nil:
		existing.Category = in.Category
		existing.SellPrice = in.SellPrice
		existing.CostPrice = in.CostPrice
		if existing.Photocopy {
			addStock = 0
		}
		existing.Stock += addStock
		if barcode != nil {
			existing.Barcode = barcode
		}
		updated, uerr := s.store.Update(ctx, existing)
		if uerr != nil {
			return ProductView{}, false, uerr
		}
		_ = s.cache.Invalidate(ctx)
		obs.StockAdjustTotal.WithLabelValues("restock").Inc()
		return toView(updated), true, nil
	case errors.Is(err, ErrNotFound):
		created, ierr := s.store.Insert(ctx, Product{
			Name:      in.Name,
			Barcode:   barcode,
			Category:  in.Category,
			SellPrice: in.SellPrice,
			CostPrice: in.CostPrice,
			Stock:     addStock,
			Photocopy: in.Photocopy,
		})
		if ierr != nil {
			return ProductView{}, false, ierr
		}
		_ = s.cache.Invalidate(ctx)
		return toView(created), false, nil
	default:
		return ProductView{}, false, err
	}
}

// UpdateInput is the payload for product edits.
type UpdateInput struct {
	Name      string        `json:"name" validate:"required,min=1,max=200"`
	Barcode   string        `json:"barcode" validate:"max=64"`
	Category  string        `json:"category" validate:"required,min=1,max=100"`
	SellPrice pricing.Money `json:"sellPrice" validate:"gte=0"`
	CostPrice pricing.Money `json:"costPrice" validate:"gte=0"`
	Stock     int           `json:"stock" validate:"gte=0"`
}

// Update overwrites a product's fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (ProductView, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if err := s.validate.Struct(in); err != nil {
		return ProductView{}, common.NewAppError("VALIDATION", "invalid product payload", http.StatusBadRequest, err)
	}
	var barcode *string
	if code := strings.TrimSpace(in.Barcode); code != "" {
		barcode = &code
	}
	p, err := s.store.Update(ctx, Product{
		ID:        id,
		Name:      in.Name,
		Barcode:   barcode,
		Category:  in.Category,
		SellPrice: in.SellPrice,
		CostPrice: in.CostPrice,
		Stock:     in.Stock,
	})
	if err != nil {
		return ProductView{}, wrapNotFound(err)
	}
	_ = s.cache.Invalidate(ctx)
	return toView(p), nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return wrapNotFound(err)
	}
	_ = s.cache.Invalidate(ctx)
	return nil
}

// AdjustInput is the payload for manual stock movements.
type AdjustInput struct {
	Direction string `json:"direction" validate:"required,oneof=in out"`
	Qty       int    `json:"qty" validate:"gt=0"`
	Unit      string `json:"unit"`
}

// AdjustStock applies a manual stock movement expressed in any sale unit.
// The quantity is converted to base units before applying.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, in AdjustInput) (ProductView, error) {
	if err := s.validate.Struct(in); err != nil {
		return ProductView{}, common.NewAppError("VALIDATION", "invalid stock adjustment", http.StatusBadRequest, err)
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return ProductView{}, wrapNotFound(err)
	}
	if current.Photocopy {
		return ProductView{}, common.NewAppError("VALIDATION",
			"photocopy service carries no stock", http.StatusBadRequest, nil)
	}
	delta := in.Qty * units.Multiplier(in.Unit, current.Category)
	if in.Direction == "out" {
		delta = -delta
		if current.Stock+delta < 0 {
			return ProductView{}, common.NewAppError("INSUFFICIENT_STOCK",
				fmt.Sprintf("only %d left in stock", current.Stock), http.StatusConflict, ErrInsufficientStock)
		}
	}
	p, err := s.store.AdjustStock(ctx, id, delta)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return ProductView{}, common.NewAppError("INSUFFICIENT_STOCK", "insufficient stock", http.StatusConflict, err)
		}
		return ProductView{}, wrapNotFound(err)
	}
	_ = s.cache.Invalidate(ctx)
	obs.StockAdjustTotal.WithLabelValues(in.Direction).Inc()
	return toView(p), nil
}

// LowStock lists products at or below the configured threshold.
func (s *Service) LowStock(ctx context.Context) ([]ProductView, error) {
	items, err := s.store.ListLowStock(ctx, s.lowStockThreshold)
	if err != nil {
		return nil, err
	}
	views := make([]ProductView, 0, len(items))
	for _, p := range items {
		views = append(views, toView(p))
	}
	return views, nil
}

// Categories lists distinct category names.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.store.ListCategories(ctx)
}

// Threshold exposes the low-stock threshold for alerting jobs.
func (s *Service) Threshold() int { return s.lowStockThreshold }

func wrapNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, err)
	}
	return err
}
