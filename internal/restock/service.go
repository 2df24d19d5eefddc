package restock

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tokoanjar/pos-api/internal/common"
)

type storeProvider interface {
	List(ctx context.Context) ([]Item, error)
	Insert(ctx context.Context, it Item) (Item, error)
	Update(ctx context.Context, it Item) (Item, error)
	SetDone(ctx context.Context, id uuid.UUID, done bool) (Item, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ClearDone(ctx context.Context) (int64, error)
}

// Service maintains the restock memo.
type Service struct {
	store    storeProvider
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(store storeProvider, validate *validator.Validate) *Service {
	if validate == nil {
		validate = validator.New()
	}
	return &Service{store: store, validate: validate}
}

// EntryInput creates or rewrites a memo entry.
type EntryInput struct {
	Name         string `json:"name" validate:"required,max=200"`
	Qty          *int   `json:"qty" validate:"omitempty,gt=0"`
	CurrentStock *int   `json:"currentStock" validate:"omitempty,gte=0"`
	Note         string `json:"note" validate:"max=500"`
}

// ListSummary is the memo split the way the owner reads it.
type ListSummary struct {
	Items   []Item `json:"items"`
	Pending int    `json:"pending"`
	Bought  int    `json:"bought"`
}

// List returns all entries with pending and bought counts.
func (s *Service) List(ctx context.Context) (ListSummary, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return ListSummary{}, err
	}
	out := ListSummary{Items: items}
	for _, it := range items {
		if it.Done {
			out.Bought++
		} else {
			out.Pending++
		}
	}
	return out, nil
}

// Add appends an entry to the memo.
func (s *Service) Add(ctx context.Context, in EntryInput) (Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return Item{}, common.NewAppError("VALIDATION", "invalid restock entry", http.StatusBadRequest, err)
	}
	return s.store.Insert(ctx, Item{
		Name:         in.Name,
		Qty:          in.Qty,
		CurrentStock: in.CurrentStock,
		Note:         strings.TrimSpace(in.Note),
	})
}

// Update rewrites an entry.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in EntryInput) (Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return Item{}, common.NewAppError("VALIDATION", "invalid restock entry", http.StatusBadRequest, err)
	}
	it, err := s.store.Update(ctx, Item{
		ID:           id,
		Name:         in.Name,
		Qty:          in.Qty,
		CurrentStock: in.CurrentStock,
		Note:         strings.TrimSpace(in.Note),
	})
	if err != nil {
		return Item{}, wrapNotFound(err)
	}
	return it, nil
}

// SetDone marks an entry bought or puts it back on the list.
func (s *Service) SetDone(ctx context.Context, id uuid.UUID, done bool) (Item, error) {
	it, err := s.store.SetDone(ctx, id, done)
	if err != nil {
		return Item{}, wrapNotFound(err)
	}
	return it, nil
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return wrapNotFound(err)
	}
	return nil
}

// ClearDone sweeps every bought entry off the memo.
func (s *Service) ClearDone(ctx context.Context) (int64, error) {
	return s.store.ClearDone(ctx)
}

func wrapNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return common.NewAppError("NOT_FOUND", "restock entry not found", http.StatusNotFound, err)
	}
	return err
}
