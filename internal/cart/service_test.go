package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tokoanjar/pos-api/internal/cart"
	"github.com/tokoanjar/pos-api/internal/catalog"
	"github.com/tokoanjar/pos-api/internal/common"
	"github.com/tokoanjar/pos-api/internal/pricing"
)

type fakeProducts struct {
	products map[uuid.UUID]catalog.Product
}

func (f *fakeProducts) Get(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func newTestService(t *testing.T) (*cart.Service, *fakeProducts) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	products := &fakeProducts{products: map[uuid.UUID]catalog.Product{}}
	svc := &cart.Service{
		R:             rdb,
		Products:      products,
		TTL:           time.Hour,
		CopyBasePrice: 300,
	}
	return svc, products
}

func seedProduct(f *fakeProducts, name string, sell, cost pricing.Money) catalog.Product {
	p := catalog.Product{
		ID:        uuid.New(),
		Name:      name,
		Category:  "ATK",
		SellPrice: sell,
		CostPrice: cost,
		Stock:     100,
	}
	f.products[p.ID] = p
	return p
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, c.ID)
	require.Empty(t, c.Items)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)
}

func TestGetMissingCart(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestAddProductSnapshotsPrices(t *testing.T) {
	svc, products := newTestService(t)
	ctx := context.Background()
	p := seedProduct(products, "Pulpen Standard", 3000, 2000)

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	c, err = svc.AddProduct(ctx, c.ID, cart.AddProductInput{ProductID: p.ID, Qty: 2})
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	it := c.Items[0]
	require.Equal(t, p.Name, it.Name)
	require.Equal(t, 2, it.Qty)
	require.Equal(t, pricing.Money(3000), it.SellPrice)
	require.Equal(t, pricing.Money(2000), it.CostPrice)
	require.False(t, it.Photocopy)

	// Catalog price changes must not affect the open cart.
	updated := p
	updated.SellPrice = 5000
	products.products[p.ID] = updated

	c, err = svc.AddProduct(ctx, c.ID, cart.AddProductInput{ProductID: p.ID, Qty: 3})
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	require.Equal(t, 5, c.Items[0].Qty)
	require.Equal(t, pricing.Money(3000), c.Items[0].SellPrice)
}

func TestAddProductUnknown(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.AddProduct(ctx, c.ID, cart.AddProductInput{ProductID: uuid.New(), Qty: 1})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestAddProductCustomPrice(t *testing.T) {
	svc, products := newTestService(t)
	ctx := context.Background()
	p := seedProduct(products, "Map Plastik", 3000, 2000)

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	haggled := pricing.Money(2500)
	c, err = svc.AddProduct(ctx, c.ID, cart.AddProductInput{ProductID: p.ID, Qty: 4, CustomPrice: &haggled})
	require.NoError(t, err)
	require.NotNil(t, c.Items[0].CustomPrice)

	_, summary, err := svc.Quote(ctx, c.ID, 0)
	require.NoError(t, err)
	require.Equal(t, pricing.Money(10000), summary.Subtotal)

	bad := pricing.Money(0)
	_, err = svc.AddProduct(ctx, c.ID, cart.AddProductInput{ProductID: p.ID, Qty: 1, CustomPrice: &bad})
	require.ErrorIs(t, err, cart.ErrInvalidInput)
}

func TestAddProductRejectsPhotocopyService(t *testing.T) {
	svc, products := newTestService(t)
	ctx := context.Background()
	p := catalog.Product{ID: uuid.New(), Name: "Fotocopy", Category: "Jasa", SellPrice: 300, Photocopy: true}
	products.products[p.ID] = p

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.AddProduct(ctx, c.ID, cart.AddProductInput{ProductID: p.ID, Qty: 100})
	require.ErrorIs(t, err, cart.ErrInvalidInput)
}

func TestAddProductRejectsNonPositiveQty(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddProduct(context.Background(), uuid.New(), cart.AddProductInput{ProductID: uuid.New(), Qty: 0})
	require.ErrorIs(t, err, cart.ErrInvalidInput)
}

func TestAddCopyTierPricing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	c, err = svc.AddCopy(ctx, c.ID, cart.AddCopyInput{Sheets: 200})
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	it := c.Items[0]
	require.Equal(t, "Fotocopy", it.Name)
	require.True(t, it.Photocopy)
	require.Equal(t, 200, it.Qty)
	require.Equal(t, pricing.Money(285), it.SellPrice)
}

func TestAddCopyCustomPrice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	custom := pricing.Money(250)
	c, err = svc.AddCopy(ctx, c.ID, cart.AddCopyInput{Sheets: 50, Label: "FC Bolak-balik", CustomPrice: &custom})
	require.NoError(t, err)
	it := c.Items[0]
	require.Equal(t, "FC Bolak-balik", it.Name)
	require.Equal(t, pricing.Money(250), it.SellPrice)
	require.NotNil(t, it.CustomPrice)
}

func TestAddCopyInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddCopy(ctx, uuid.New(), cart.AddCopyInput{Sheets: 0})
	require.ErrorIs(t, err, cart.ErrInvalidInput)

	bad := pricing.Money(0)
	_, err = svc.AddCopy(ctx, uuid.New(), cart.AddCopyInput{Sheets: 10, CustomPrice: &bad})
	require.ErrorIs(t, err, cart.ErrInvalidInput)
}

func TestUpdateItemRepricesCopies(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)
	c, err = svc.AddCopy(ctx, c.ID, cart.AddCopyInput{Sheets: 200})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(285), c.Items[0].SellPrice)

	// Dropping below the tier floor reprices at the base rate.
	c, err = svc.UpdateItem(ctx, c.ID, c.Items[0].ID, 50)
	require.NoError(t, err)
	require.Equal(t, 50, c.Items[0].Qty)
	require.Equal(t, pricing.Money(300), c.Items[0].SellPrice)

	c, err = svc.UpdateItem(ctx, c.ID, c.Items[0].ID, 1200)
	require.NoError(t, err)
	require.Equal(t, pricing.Money(260), c.Items[0].SellPrice)
}

func TestUpdateItemCustomPricePins(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)
	custom := pricing.Money(200)
	c, err = svc.AddCopy(ctx, c.ID, cart.AddCopyInput{Sheets: 100, CustomPrice: &custom})
	require.NoError(t, err)

	c, err = svc.UpdateItem(ctx, c.ID, c.Items[0].ID, 1500)
	require.NoError(t, err)
	require.Equal(t, pricing.Money(200), c.Items[0].SellPrice)
}

func TestUpdateItemZeroRemoves(t *testing.T) {
	svc, products := newTestService(t)
	ctx := context.Background()
	p := seedProduct(products, "Buku Tulis", 4000, 3000)

	c, err := svc.Create(ctx)
	require.NoError(t, err)
	c, err = svc.AddProduct(ctx, c.ID, cart.AddProductInput{ProductID: p.ID, Qty: 1})
	require.NoError(t, err)

	c, err = svc.UpdateItem(ctx, c.ID, c.Items[0].ID, 0)
	require.NoError(t, err)
	require.Empty(t, c.Items)
}

func TestUpdateItemUnknown(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, c.ID, uuid.New(), 2)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestClear(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, c.ID))

	_, err = svc.Get(ctx, c.ID)
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestQuoteWithDiscount(t *testing.T) {
	svc, products := newTestService(t)
	ctx := context.Background()
	p := seedProduct(products, "Spidol Snowman", 8000, 6000)

	c, err := svc.Create(ctx)
	require.NoError(t, err)
	c, err = svc.AddProduct(ctx, c.ID, cart.AddProductInput{ProductID: p.ID, Qty: 2})
	require.NoError(t, err)
	c, err = svc.AddCopy(ctx, c.ID, cart.AddCopyInput{Sheets: 100})
	require.NoError(t, err)

	_, summary, err := svc.Quote(ctx, c.ID, 10)
	require.NoError(t, err)
	// 2 x 8000 + 100 x 300 = 46000, minus 10%.
	require.Equal(t, pricing.Money(46000), summary.Subtotal)
	require.Equal(t, pricing.Money(4600), summary.Discount)
	require.Equal(t, pricing.Money(41400), summary.Total)
}

func TestSummarizeEmptyCart(t *testing.T) {
	summary := cart.Summarize(cart.Cart{}, 10, pricing.Policy{})
	require.Equal(t, pricing.Money(0), summary.Subtotal)
	require.Equal(t, pricing.Money(0), summary.Total)
}
