package handler

import (
	"log/slog"
	"net/http"

	"storefront/internal/model"
)

// handleBeginCheckout snapshots the cart into a pending draft.
// Precondition failures carry the page that resolves them.
// POST /checkout
func (h *Handler) handleBeginCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	draft, err := sh.BeginCheckout(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "checkout started",
		slog.String("profile", sh.Profile()),
		slog.String("draft_id", draft.ID),
		slog.Int("lines", len(draft.Items)),
		slog.String("total", draft.Total.String()),
	)

	h.writeJSON(w, http.StatusCreated, draft)
}

// handlePendingDraft returns the pending draft.
// GET /checkout
func (h *Handler) handlePendingDraft(w http.ResponseWriter, r *http.Request) {
	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	draft, err := sh.PendingDraft(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, draft)
}

// handleAbandonDraft discards the pending draft and keeps the cart.
// DELETE /checkout
func (h *Handler) handleAbandonDraft(w http.ResponseWriter, r *http.Request) {
	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := sh.AbandonDraft(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, redirectResponse{Redirect: model.RedirectCart})
}

// handlePaymentOptions lists the accepted payment methods.
// GET /checkout/payment-options
func (h *Handler) handlePaymentOptions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, paymentOptionsResponse{Options: h.commerce.PaymentOptions()})
}

type paymentOptionsResponse struct {
	Options []model.PaymentOption `json:"options"`
}

// paymentRequest selects the payment method; empty means COD.
type paymentRequest struct {
	Method model.PaymentMethod `json:"method"`
}

// handleCompletePayment turns the draft into an order.
// POST /checkout/pay {"method": "COD"|"Transfer"}
func (h *Handler) handleCompletePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req paymentRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.writeError(w, err)
			return
		}
	}

	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	order, err := sh.CompletePayment(ctx, req.Method)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "order paid",
		slog.String("profile", sh.Profile()),
		slog.Int64("order_id", order.ID),
		slog.String("method", string(order.PaymentMethod)),
		slog.String("total", order.Total.String()),
	)

	h.writeJSON(w, http.StatusCreated, order)
}

// handleListOrders returns the order history, oldest first.
// GET /orders
func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	orders, err := sh.Orders(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ordersResponse{Orders: orders, Count: len(orders)})
}

type ordersResponse struct {
	Orders []model.Order `json:"orders"`
	Count  int           `json:"count"`
}
