package restock

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tokoanjar/pos-api/internal/common"
)

type fakeStore struct {
	items map[uuid.UUID]Item
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[uuid.UUID]Item)}
}

func (f *fakeStore) List(context.Context) ([]Item, error) {
	out := make([]Item, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeStore) Insert(_ context.Context, it Item) (Item, error) {
	it.ID = uuid.New()
	it.CreatedAt = time.Now()
	it.UpdatedAt = it.CreatedAt
	f.items[it.ID] = it
	return it, nil
}

func (f *fakeStore) Update(_ context.Context, it Item) (Item, error) {
	stored, ok := f.items[it.ID]
	if !ok {
		return Item{}, ErrNotFound
	}
	stored.Name = it.Name
	stored.Qty = it.Qty
	stored.CurrentStock = it.CurrentStock
	stored.Note = it.Note
	f.items[it.ID] = stored
	return stored, nil
}

func (f *fakeStore) SetDone(_ context.Context, id uuid.UUID, done bool) (Item, error) {
	stored, ok := f.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	stored.Done = done
	f.items[id] = stored
	return stored, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.items[id]; !ok {
		return ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeStore) ClearDone(context.Context) (int64, error) {
	var n int64
	for id, it := range f.items {
		if it.Done {
			delete(f.items, id)
			n++
		}
	}
	return n, nil
}

func requireAppError(t *testing.T, err error, code string, status int) {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code)
	require.Equal(t, status, appErr.HTTPStatus)
}

func TestAddAndList(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	ctx := context.Background()

	qty := 10
	it, err := svc.Add(ctx, EntryInput{Name: "  Kertas A4 70gr ", Qty: &qty, Note: " habis, tinggal display "})
	require.NoError(t, err)
	require.Equal(t, "Kertas A4 70gr", it.Name)
	require.Equal(t, "habis, tinggal display", it.Note)
	require.Equal(t, 10, *it.Qty)
	require.False(t, it.Done)

	_, err = svc.Add(ctx, EntryInput{Name: "Map plastik"})
	require.NoError(t, err)

	out, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	require.Equal(t, 2, out.Pending)
	require.Equal(t, 0, out.Bought)
}

func TestAddValidation(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, EntryInput{Name: "   "})
	requireAppError(t, err, "VALIDATION", http.StatusBadRequest)

	zero := 0
	_, err = svc.Add(ctx, EntryInput{Name: "Lem", Qty: &zero})
	requireAppError(t, err, "VALIDATION", http.StatusBadRequest)
}

func TestUpdateEntry(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	ctx := context.Background()

	it, err := svc.Add(ctx, EntryInput{Name: "Spidol"})
	require.NoError(t, err)

	qty := 24
	updated, err := svc.Update(ctx, it.ID, EntryInput{Name: "Spidol Snowman hitam", Qty: &qty})
	require.NoError(t, err)
	require.Equal(t, "Spidol Snowman hitam", updated.Name)
	require.Equal(t, 24, *updated.Qty)

	_, err = svc.Update(ctx, uuid.New(), EntryInput{Name: "Spidol"})
	requireAppError(t, err, "NOT_FOUND", http.StatusNotFound)
}

func TestDoneLifecycle(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	ctx := context.Background()

	a, err := svc.Add(ctx, EntryInput{Name: "Isi staples"})
	require.NoError(t, err)
	b, err := svc.Add(ctx, EntryInput{Name: "Tinta printer"})
	require.NoError(t, err)

	marked, err := svc.SetDone(ctx, a.ID, true)
	require.NoError(t, err)
	require.True(t, marked.Done)

	out, err := svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, out.Pending)
	require.Equal(t, 1, out.Bought)

	// Unchecking puts the entry back on the list.
	unmarked, err := svc.SetDone(ctx, a.ID, false)
	require.NoError(t, err)
	require.False(t, unmarked.Done)

	_, err = svc.SetDone(ctx, b.ID, true)
	require.NoError(t, err)
	cleared, err := svc.ClearDone(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, cleared)

	out, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)

	_, err = svc.SetDone(ctx, uuid.New(), true)
	requireAppError(t, err, "NOT_FOUND", http.StatusNotFound)
}

func TestDeleteEntry(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	ctx := context.Background()

	it, err := svc.Add(ctx, EntryInput{Name: "Amplop"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, it.ID))
	err = svc.Delete(ctx, it.ID)
	requireAppError(t, err, "NOT_FOUND", http.StatusNotFound)
}
