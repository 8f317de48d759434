// Package handler provides the HTTP and MCP surfaces of the storefront.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"storefront/internal/catalog"
	"storefront/internal/client"
	"storefront/internal/commerce"
	"storefront/internal/model"
	"storefront/internal/storage"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	catalog  *catalog.Service
	commerce *commerce.Service
	store    *storage.Store
	logger   *slog.Logger
}

// New creates a new Handler.
// store is used only to subscribe event streams to change notifications.
func New(catalogSvc *catalog.Service, commerceSvc *commerce.Service, store *storage.Store, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:  catalogSvc,
		commerce: commerceSvc,
		store:    store,
		logger:   logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)

	mux.HandleFunc("POST /profiles", h.handleCreateProfile)

	// Catalog (shared by every profile)
	mux.HandleFunc("GET /catalog", h.handleListProducts)
	mux.HandleFunc("GET /catalog/categories", h.handleCategories)
	mux.HandleFunc("GET /catalog/{id}", h.handleGetProduct)

	// Accounts
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("GET /profile", h.handleGetProfile)
	mux.HandleFunc("PUT /profile", h.handleUpdateProfile)

	// Cart
	mux.HandleFunc("GET /cart", h.handleGetCart)
	mux.HandleFunc("POST /cart/items", h.handleAddToCart)
	mux.HandleFunc("POST /cart/items/{id}/increment", h.handleIncrement)
	mux.HandleFunc("POST /cart/items/{id}/decrement", h.handleDecrement)
	mux.HandleFunc("DELETE /cart/items/{id}", h.handleRemoveFromCart)
	mux.HandleFunc("DELETE /cart", h.handleClearCart)
	mux.HandleFunc("POST /cart/buy-now", h.handleBuyNow)

	// Wishlist
	mux.HandleFunc("GET /wishlist", h.handleGetWishlist)
	mux.HandleFunc("POST /wishlist/toggle", h.handleToggleWishlist)
	mux.HandleFunc("DELETE /wishlist/items/{id}", h.handleRemoveFromWishlist)
	mux.HandleFunc("DELETE /wishlist", h.handleClearWishlist)
	mux.HandleFunc("POST /wishlist/items/{id}/move-to-cart", h.handleMoveToCart)

	// Checkout and orders
	mux.HandleFunc("POST /checkout", h.handleBeginCheckout)
	mux.HandleFunc("GET /checkout", h.handlePendingDraft)
	mux.HandleFunc("DELETE /checkout", h.handleAbandonDraft)
	mux.HandleFunc("GET /checkout/payment-options", h.handlePaymentOptions)
	mux.HandleFunc("POST /checkout/pay", h.handleCompletePayment)
	mux.HandleFunc("GET /orders", h.handleListOrders)

	// Admin overlay
	mux.HandleFunc("POST /admin/products", h.handleAddProduct)
	mux.HandleFunc("PUT /admin/products/{id}", h.handleEditProduct)
	mux.HandleFunc("DELETE /admin/products/{id}", h.handleDeleteProduct)

	// Change notifications
	mux.HandleFunc("GET /events", h.handleEvents)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}

// handleCreateProfile mints a profile id for a new client.
// POST /profiles
func (h *Handler) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusCreated, profileResponse{
		Profile: client.NewProfileID(),
		Version: client.ServerVersion,
	})
}

type profileResponse struct {
	Profile string `json:"profile"`
	Version string `json:"version"`
}

// shopper returns the state object of the calling profile.
// The client middleware guarantees an identity on every non-exempt route.
func (h *Handler) shopper(r *http.Request) (*commerce.Shopper, client.Identity, error) {
	id, ok := client.FromContext(r.Context())
	if !ok {
		return nil, id, &model.APIError{
			Code:       client.IdentityRequired,
			Message:    "missing Storefront-Client header",
			StatusCode: http.StatusBadRequest,
			Err:        model.ErrInvalidRequest,
		}
	}
	return h.commerce.Shopper(id.Profile, id.Tab), id, nil
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError

	if !errors.As(err, &apiErr) {
		// Wrap unexpected errors
		apiErr = model.NewInternalError(err)
		h.logger.Error("internal error", slog.String("error", err.Error()))
	} else if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error("request failed", slog.String("code", apiErr.Code), slog.Any("error", apiErr.Err))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:     apiErr.Code,
			Message:  apiErr.Message,
			Redirect: apiErr.Redirect,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// pathID parses the {id} path segment as a product id.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

// productRef is the body of requests that name a single product.
type productRef struct {
	ProductID int64 `json:"product_id"`
}

func decodeProductRef(r *http.Request) (int64, error) {
	var ref productRef
	if err := decodeJSON(r, &ref); err != nil {
		return 0, err
	}
	if ref.ProductID <= 0 {
		return 0, model.NewValidationError("product_id", "must be a positive integer")
	}
	return ref.ProductID, nil
}
