package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/model"
	"storefront/internal/storage"
)

const guitarsDoc = `[
	{"id":1,"title":"Tele","category":"Electric","price_usd":500},
	{"id":2,"title":"Dreadnought","category":{"name":"Acoustic"},"price":300,"image":"d.jpg"},
	{"id":3,"title":"Jazz Bass","category_name":"Bass","price_usd":"800"}
]`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staticSource(doc string) Source {
	return SourceFunc(func(context.Context) ([]model.RawProduct, error) {
		return DecodeDocument([]byte(doc))
	})
}

func newTestService(t *testing.T, source Source) (*Service, *storage.Store) {
	t.Helper()
	store := storage.New(storage.NewMemoryBackend(), testLogger())
	return NewService(source, store, testNode(t), testLogger()), store
}

func TestHTTPSource_FetchAndRevalidate(t *testing.T) {
	var requests, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, guitarsDoc)
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPSourceConfig{URL: srv.URL})

	first, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 3)
	assert.Equal(t, int32(2), requests.Load(), "zero freshness should revalidate every time")
	assert.Equal(t, int32(1), notModified.Load())
}

func TestHTTPSource_MaxAgeServesFromCache(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Cache-Control", "public, max-age=600")
		io.WriteString(w, guitarsDoc)
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPSourceConfig{URL: srv.URL})
	for i := 0; i < 3; i++ {
		_, err := src.Fetch(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), requests.Load())

	src.Invalidate()
	_, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())
}

func TestHTTPSource_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
		{"invalid JSON", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPSource(HTTPSourceConfig{URL: srv.URL}).Fetch(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrSourceUnavailable))

			var apiErr *model.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, 503, apiErr.StatusCode)
		})
	}
}

func TestHTTPSource_NoStaleFallback(t *testing.T) {
	fail := atomic.Bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		io.WriteString(w, guitarsDoc)
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPSourceConfig{URL: srv.URL})
	_, err := src.Fetch(context.Background())
	require.NoError(t, err)

	fail.Store(true)
	records, err := src.Fetch(context.Background())
	assert.True(t, errors.Is(err, model.ErrSourceUnavailable))
	assert.Nil(t, records)
}

func TestService_ProductsUnavailable(t *testing.T) {
	source := SourceFunc(func(context.Context) ([]model.RawProduct, error) {
		return nil, model.NewSourceUnavailableError(errors.New("dial tcp: timeout"))
	})
	svc, _ := newTestService(t, source)

	products, err := svc.Products(context.Background())
	assert.Nil(t, products)
	assert.True(t, errors.Is(err, model.ErrSourceUnavailable), "an unavailable catalog must not look empty")
}

func TestService_ProductsAndLookup(t *testing.T) {
	svc, _ := newTestService(t, staticSource(guitarsDoc))
	ctx := context.Background()

	products, err := svc.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, productIDs(products))

	p, err := svc.Product(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Acoustic", p.Category)
	assert.Equal(t, "d.jpg", p.PrimaryImage())

	_, err = svc.Product(ctx, 404)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Electric", "Acoustic", "Bass"}, cats)

	found, err := svc.Search(ctx, Query{Sort: SortLowHigh})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 3}, productIDs(found))

	_, err = svc.Search(ctx, Query{Sort: "sideways"})
	assert.True(t, errors.Is(err, model.ErrInvalidRequest))
}

func TestService_GeneratedIDLookup(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, staticSource(`[{"title":"No Id Strat","price_usd":700}]`))

	listed, err := svc.Products(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	id := listed[0].ID

	again, err := svc.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again[0].ID)

	p, err := svc.Product(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "No Id Strat", p.Title)
	assert.True(t, p.PriceUSD.Equal(decimal.NewFromInt(700)))
}

func TestService_MalformedOverlayIsEmpty(t *testing.T) {
	svc, store := newTestService(t, staticSource(guitarsDoc))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, storage.SharedNamespace, KeyAdded, "", map[string]string{"not": "a list"}))
	require.NoError(t, store.Save(ctx, storage.SharedNamespace, KeyDeleted, "", "1,2"))

	products, err := svc.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, productIDs(products))
}

func TestService_AddProduct(t *testing.T) {
	svc, _ := newTestService(t, staticSource(guitarsDoc))
	ctx := context.Background()

	p, err := svc.AddProduct(ctx, "tab-1", model.ProductInput{
		Title:     "Custom Shop",
		Category:  "Electric",
		PriceUSD:  decimal.NewFromInt(2000),
		Materials: &model.Materials{Body: "Ash"},
	})
	require.NoError(t, err)
	assert.True(t, p.IsCustom)
	assert.True(t, p.PriceIDR.Equal(decimal.NewFromInt(31000000)), "IDR derived from USD")
	assert.Equal(t, []string{model.PlaceholderImage}, p.Images)

	products, err := svc.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 4)
	assert.Equal(t, p.ID, products[0].ID, "added products come first")
}

func TestService_AddProductValidation(t *testing.T) {
	svc, _ := newTestService(t, staticSource(guitarsDoc))
	ctx := context.Background()

	tests := []struct {
		name  string
		input model.ProductInput
		field string
	}{
		{"missing title", model.ProductInput{Category: "Electric"}, "title"},
		{"blank category", model.ProductInput{Title: "X", Category: "   "}, "category"},
		{"negative price", model.ProductInput{Title: "X", Category: "Y", PriceUSD: decimal.NewFromInt(-1)}, "price_usd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddProduct(ctx, "", tt.input)
			require.Error(t, err)
			var apiErr *model.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, 400, apiErr.StatusCode)
			assert.Contains(t, apiErr.Message, tt.field)
		})
	}
}

func TestService_EditProduct(t *testing.T) {
	svc, _ := newTestService(t, staticSource(guitarsDoc))
	ctx := context.Background()

	added, err := svc.AddProduct(ctx, "", model.ProductInput{Title: "Mine", Category: "Electric", PriceUSD: decimal.NewFromInt(10)})
	require.NoError(t, err)

	t.Run("added product replaced in place", func(t *testing.T) {
		_, err := svc.EditProduct(ctx, "", added.ID, model.ProductInput{Title: "Mine v2", Category: "Electric", PriceUSD: decimal.NewFromInt(20)})
		require.NoError(t, err)

		products, err := svc.Products(ctx)
		require.NoError(t, err)
		require.Len(t, products, 4)
		assert.Equal(t, "Mine v2", products[0].Title)
	})

	t.Run("remote product shadowed", func(t *testing.T) {
		edited, err := svc.EditProduct(ctx, "", 1, model.ProductInput{Title: "Tele Deluxe", Category: "Electric", PriceUSD: decimal.NewFromInt(650)})
		require.NoError(t, err)
		assert.True(t, edited.IsCustom)

		p, err := svc.Product(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Tele Deluxe", p.Title)
		assert.True(t, p.PriceUSD.Equal(decimal.NewFromInt(650)))

		// A second edit overwrites the first rather than stacking.
		_, err = svc.EditProduct(ctx, "", 1, model.ProductInput{Title: "Tele Final", Category: "Electric"})
		require.NoError(t, err)
		overlay, err := svc.overlay.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, overlay.Edited, 1)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := svc.EditProduct(ctx, "", 999, model.ProductInput{Title: "X", Category: "Y"})
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})
}

func TestService_DeleteProduct(t *testing.T) {
	svc, store := newTestService(t, staticSource(guitarsDoc))
	ctx := context.Background()

	sub := store.Subscribe(storage.SharedNamespace)
	defer sub.Close()

	added, err := svc.AddProduct(ctx, "", model.ProductInput{Title: "Temp", Category: "Electric"})
	require.NoError(t, err)
	<-sub.C

	require.NoError(t, svc.DeleteProduct(ctx, "admin-tab", added.ID))
	c := <-sub.C
	assert.Equal(t, KeyAdded, c.Key)
	assert.Equal(t, "admin-tab", c.Origin)

	require.NoError(t, svc.DeleteProduct(ctx, "", 1))
	c = <-sub.C
	assert.Equal(t, KeyDeleted, c.Key)

	products, err := svc.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, productIDs(products))

	err = svc.DeleteProduct(ctx, "", 1)
	assert.True(t, errors.Is(err, model.ErrNotFound), "already deleted")

	overlay, err := svc.overlay.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, overlay.Added)
	assert.Equal(t, []int64{1}, overlay.Deleted)
}
