package commerce

import (
	"context"

	"github.com/google/uuid"

	"storefront/internal/model"
)

// BeginCheckout captures the cart as a pending order draft.
//
// Preconditions, checked in order:
//   - a session exists (else redirect to login)
//   - the session has a real address (else redirect to profile edit)
//   - the cart is not empty (else redirect to the cart)
//
// An existing draft is replaced.
func (sh *Shopper) BeginCheckout(ctx context.Context) (*model.Draft, error) {
	unlock := sh.lock()
	defer unlock()

	session, err := sh.requireSession(ctx)
	if err != nil {
		return nil, err
	}
	if !session.HasAddress() {
		return nil, model.NewPreconditionError("PROFILE_INCOMPLETE",
			"add a shipping address to your profile before checking out", model.RedirectProfileEdit)
	}

	lines, err := sh.state.cart(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if len(lines) == 0 {
		return nil, model.NewPreconditionError("CART_EMPTY", "your cart is empty", model.RedirectCart)
	}

	draft := model.Draft{
		ID:        uuid.NewString(),
		Customer:  *session,
		Items:     lines,
		Total:     model.CartTotal(lines),
		CreatedAt: sh.svc.now(),
	}
	if err := sh.state.saveDraft(ctx, draft); err != nil {
		return nil, model.NewInternalError(err)
	}

	sh.logger.Info("checkout started",
		"draft_id", draft.ID,
		"items", model.CountItems(lines),
		"total", draft.Total.String(),
	)
	return &draft, nil
}

// PendingDraft returns the current draft, or NotFound when there is none.
func (sh *Shopper) PendingDraft(ctx context.Context) (*model.Draft, error) {
	draft, err := sh.state.draft(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if draft == nil {
		return nil, model.NewNotFoundError("pending order")
	}
	return draft, nil
}

// CompletePayment turns the pending draft into a paid order.
// An empty method means cash on delivery. Afterwards no draft remains, the
// cart is empty, and exactly one order was appended.
func (sh *Shopper) CompletePayment(ctx context.Context, method model.PaymentMethod) (*model.Order, error) {
	if method == "" {
		method = model.PaymentCOD
	}
	if !method.Valid() {
		return nil, model.NewValidationError("payment_method", "must be COD or Transfer")
	}

	unlock := sh.lock()
	defer unlock()

	draft, err := sh.state.draft(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if draft == nil {
		return nil, model.NewPreconditionError("NO_PENDING_ORDER",
			"there is no order waiting for payment", model.RedirectCheckout)
	}

	orders, err := sh.state.orders(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	order := model.Order{
		ID:            sh.svc.ids.Generate().Int64(),
		DraftID:       draft.ID,
		Customer:      draft.Customer,
		Items:         draft.Items,
		Total:         draft.Total,
		PaymentMethod: method,
		Status:        model.OrderStatusPaid,
		Date:          draft.CreatedAt,
		PaidAt:        sh.svc.now(),
	}

	if err := sh.state.saveOrders(ctx, append(orders, order)); err != nil {
		return nil, model.NewInternalError(err)
	}
	if err := sh.state.remove(ctx, KeyCart); err != nil {
		return nil, model.NewInternalError(err)
	}
	if err := sh.state.remove(ctx, KeyPendingOrder); err != nil {
		return nil, model.NewInternalError(err)
	}

	sh.logger.Info("order paid",
		"order_id", order.ID,
		"draft_id", draft.ID,
		"payment_method", string(method),
		"total", order.Total.String(),
	)
	return &order, nil
}

// AbandonDraft deletes the pending draft, if any. The cart is kept.
func (sh *Shopper) AbandonDraft(ctx context.Context) error {
	unlock := sh.lock()
	defer unlock()

	if err := sh.state.remove(ctx, KeyPendingOrder); err != nil {
		return model.NewInternalError(err)
	}
	return nil
}

// Orders returns the order history, oldest first.
func (sh *Shopper) Orders(ctx context.Context) ([]model.Order, error) {
	orders, err := sh.state.orders(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}
