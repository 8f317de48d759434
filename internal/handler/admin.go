package handler

import (
	"net/http"

	"storefront/internal/client"
	"storefront/internal/model"
)

// requireAdmin checks that the calling profile holds an admin session.
// Logged-out callers get LOGIN_REQUIRED; other sessions get 403.
func (h *Handler) requireAdmin(r *http.Request) (client.Identity, error) {
	sh, id, err := h.shopper(r)
	if err != nil {
		return id, err
	}
	session, err := sh.Session(r.Context())
	if err != nil {
		return id, err
	}
	if session == nil {
		return id, model.NewLoginRequiredError()
	}
	if !session.IsAdmin() {
		return id, model.NewForbiddenError("admin session required")
	}
	return id, nil
}

// handleAddProduct adds a product to the local overlay.
// POST /admin/products
func (h *Handler) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	id, err := h.requireAdmin(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var input model.ProductInput
	if err := decodeJSON(r, &input); err != nil {
		h.writeError(w, err)
		return
	}

	product, err := h.catalog.AddProduct(r.Context(), id.Tab, input)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, product)
}

// handleEditProduct replaces a product through the overlay.
// PUT /admin/products/{id}
func (h *Handler) handleEditProduct(w http.ResponseWriter, r *http.Request) {
	id, err := h.requireAdmin(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	productID, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var input model.ProductInput
	if err := decodeJSON(r, &input); err != nil {
		h.writeError(w, err)
		return
	}

	product, err := h.catalog.EditProduct(r.Context(), id.Tab, productID, input)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

// handleDeleteProduct removes a product from the reconciled catalog.
// DELETE /admin/products/{id}
func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := h.requireAdmin(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	productID, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id.Tab, productID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
