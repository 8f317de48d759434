package commerce

import (
	"context"

	"storefront/internal/model"
)

// Cart returns the cart with totals computed from the stored prices.
func (sh *Shopper) Cart(ctx context.Context) (*model.Cart, error) {
	lines, err := sh.state.cart(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	return model.NewCart(lines), nil
}

// AddToCart adds one unit of the product. Requires a session.
// An existing line is incremented; otherwise a line with quantity 1 is inserted.
func (sh *Shopper) AddToCart(ctx context.Context, productID int64) (*model.Cart, error) {
	if _, err := sh.requireSession(ctx); err != nil {
		return nil, err
	}
	product, err := sh.svc.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	unlock := sh.lock()
	defer unlock()

	lines, err := sh.addLine(ctx, *product)
	if err != nil {
		return nil, err
	}
	sh.logger.Info("added to cart", "product_id", productID)
	return model.NewCart(lines), nil
}

// addLine persists product into the cart. Callers hold the profile lock.
func (sh *Shopper) addLine(ctx context.Context, product model.Product) ([]model.CartLine, error) {
	lines, err := sh.state.cart(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	found := false
	for i := range lines {
		if lines[i].Product.ID == product.ID {
			lines[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, model.CartLine{Product: product, Quantity: 1})
	}

	if err := sh.state.saveCart(ctx, lines); err != nil {
		return nil, model.NewInternalError(err)
	}
	return lines, nil
}

// Increment raises the quantity of an existing line by one.
func (sh *Shopper) Increment(ctx context.Context, productID int64) (*model.Cart, error) {
	return sh.adjust(ctx, productID, +1)
}

// Decrement lowers the quantity of an existing line by one.
// A line that reaches zero is removed.
func (sh *Shopper) Decrement(ctx context.Context, productID int64) (*model.Cart, error) {
	return sh.adjust(ctx, productID, -1)
}

func (sh *Shopper) adjust(ctx context.Context, productID int64, delta int) (*model.Cart, error) {
	unlock := sh.lock()
	defer unlock()

	lines, err := sh.state.cart(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	idx := lineIndex(lines, productID)
	if idx < 0 {
		return nil, model.NewNotFoundError("cart line")
	}

	lines[idx].Quantity += delta
	if lines[idx].Quantity <= 0 {
		lines = append(lines[:idx], lines[idx+1:]...)
	}

	if err := sh.state.saveCart(ctx, lines); err != nil {
		return nil, model.NewInternalError(err)
	}
	return model.NewCart(lines), nil
}

// RemoveFromCart deletes the line for productID. Missing lines are ignored.
func (sh *Shopper) RemoveFromCart(ctx context.Context, productID int64) (*model.Cart, error) {
	unlock := sh.lock()
	defer unlock()

	lines, err := sh.state.cart(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if idx := lineIndex(lines, productID); idx >= 0 {
		lines = append(lines[:idx], lines[idx+1:]...)
	}
	if err := sh.state.saveCart(ctx, lines); err != nil {
		return nil, model.NewInternalError(err)
	}
	return model.NewCart(lines), nil
}

// ClearCart empties the cart.
func (sh *Shopper) ClearCart(ctx context.Context) error {
	unlock := sh.lock()
	defer unlock()

	if err := sh.state.remove(ctx, KeyCart); err != nil {
		return model.NewInternalError(err)
	}
	return nil
}

// BuyNow replaces the cart with a single unit of the product. Requires a session.
func (sh *Shopper) BuyNow(ctx context.Context, productID int64) (*model.Cart, error) {
	if _, err := sh.requireSession(ctx); err != nil {
		return nil, err
	}
	product, err := sh.svc.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	unlock := sh.lock()
	defer unlock()

	lines := []model.CartLine{{Product: *product, Quantity: 1}}
	if err := sh.state.saveCart(ctx, lines); err != nil {
		return nil, model.NewInternalError(err)
	}
	sh.logger.Info("buy now", "product_id", productID)
	return model.NewCart(lines), nil
}

func lineIndex(lines []model.CartLine, productID int64) int {
	for i := range lines {
		if lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}
