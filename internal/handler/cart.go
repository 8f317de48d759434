package handler

import (
	"context"
	"net/http"

	"storefront/internal/commerce"
	"storefront/internal/model"
)

// cartOp is a cart mutation keyed by product id.
type cartOp func(sh *commerce.Shopper, ctx context.Context, productID int64) (*model.Cart, error)

// handleGetCart returns the cart with derived totals.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	cart, err := sh.Cart(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, cart)
}

// handleAddToCart adds one unit of the product named in the body.
// POST /cart/items {"product_id": 1}
func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	productID, err := decodeProductRef(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.runCartOp(w, r, productID, (*commerce.Shopper).AddToCart)
}

// handleBuyNow adds the product and sends the shell to the cart.
// POST /cart/buy-now {"product_id": 1}
func (h *Handler) handleBuyNow(w http.ResponseWriter, r *http.Request) {
	productID, err := decodeProductRef(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	cart, err := sh.BuyNow(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, buyNowResponse{Cart: cart, Redirect: model.RedirectCart})
}

type buyNowResponse struct {
	Cart     *model.Cart `json:"cart"`
	Redirect string      `json:"redirect"`
}

// POST /cart/items/{id}/increment
func (h *Handler) handleIncrement(w http.ResponseWriter, r *http.Request) {
	h.runPathCartOp(w, r, (*commerce.Shopper).Increment)
}

// POST /cart/items/{id}/decrement
func (h *Handler) handleDecrement(w http.ResponseWriter, r *http.Request) {
	h.runPathCartOp(w, r, (*commerce.Shopper).Decrement)
}

// DELETE /cart/items/{id}
func (h *Handler) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.runPathCartOp(w, r, (*commerce.Shopper).RemoveFromCart)
}

// handleClearCart empties the cart.
// DELETE /cart
func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := sh.ClearCart(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewCart(nil))
}

func (h *Handler) runPathCartOp(w http.ResponseWriter, r *http.Request, op cartOp) {
	productID, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.runCartOp(w, r, productID, op)
}

func (h *Handler) runCartOp(w http.ResponseWriter, r *http.Request, productID int64, op cartOp) {
	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	cart, err := op(sh, r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, cart)
}

// === Wishlist ===

// handleGetWishlist returns the saved products.
// GET /wishlist
func (h *Handler) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	entries, err := sh.Wishlist(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, wishlistResponse{Items: entries, Count: len(entries)})
}

type wishlistResponse struct {
	Items []model.WishlistEntry `json:"items"`
	Count int                   `json:"count"`
}

// handleToggleWishlist saves or unsaves the product named in the body.
// POST /wishlist/toggle {"product_id": 1}
func (h *Handler) handleToggleWishlist(w http.ResponseWriter, r *http.Request) {
	productID, err := decodeProductRef(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	saved, err := sh.ToggleWishlist(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toggleResponse{ProductID: productID, Saved: saved})
}

type toggleResponse struct {
	ProductID int64 `json:"product_id"`
	Saved     bool  `json:"saved"`
}

// handleRemoveFromWishlist drops one entry.
// DELETE /wishlist/items/{id}
func (h *Handler) handleRemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	entries, err := sh.RemoveFromWishlist(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, wishlistResponse{Items: entries, Count: len(entries)})
}

// handleClearWishlist empties the wishlist.
// DELETE /wishlist
func (h *Handler) handleClearWishlist(w http.ResponseWriter, r *http.Request) {
	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := sh.ClearWishlist(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, wishlistResponse{Items: []model.WishlistEntry{}})
}

// POST /wishlist/items/{id}/move-to-cart
func (h *Handler) handleMoveToCart(w http.ResponseWriter, r *http.Request) {
	h.runPathCartOp(w, r, (*commerce.Shopper).MoveToCart)
}
