package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/catalog"
	"storefront/internal/model"
)

// handleListProducts returns the reconciled catalog narrowed by query parameters.
// GET /catalog?category=&q=&max_price=&sort=
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := parseQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	products, err := h.catalog.Search(ctx, q)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.DebugContext(ctx, "catalog listed",
		slog.String("category", q.Category),
		slog.String("keyword", q.Keyword),
		slog.Int("results", len(products)),
	)

	h.writeJSON(w, http.StatusOK, productList{Products: products, Count: len(products)})
}

type productList struct {
	Products []model.Product `json:"products"`
	Count    int             `json:"count"`
}

func parseQuery(r *http.Request) (catalog.Query, error) {
	params := r.URL.Query()
	q := catalog.Query{
		Category: strings.TrimSpace(params.Get("category")),
		Keyword:  strings.TrimSpace(params.Get("q")),
		Sort:     strings.TrimSpace(params.Get("sort")),
	}
	if raw := strings.TrimSpace(params.Get("max_price")); raw != "" {
		max, err := decimal.NewFromString(raw)
		if err != nil || max.IsNegative() {
			return q, model.NewValidationError("max_price", "must be a non-negative number")
		}
		q.MaxPrice = &max
	}
	return q, nil
}

// handleCategories returns the category labels and the price slider ceiling.
// GET /catalog/categories
func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, categoriesResponse{
		Categories:   catalog.Categories(products),
		PriceCeiling: catalog.PriceCeiling(products),
	})
}

type categoriesResponse struct {
	Categories   []string        `json:"categories"`
	PriceCeiling decimal.Decimal `json:"price_ceiling"`
}

// handleGetProduct returns one reconciled product.
// GET /catalog/{id}
func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	product, err := h.catalog.Product(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}
