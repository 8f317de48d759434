package commerce

import (
	"context"

	"storefront/internal/model"
)

// Wishlist returns the saved products in the order they were added.
func (sh *Shopper) Wishlist(ctx context.Context) ([]model.WishlistEntry, error) {
	entries, err := sh.state.wishlist(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if entries == nil {
		entries = []model.WishlistEntry{}
	}
	return entries, nil
}

// ToggleWishlist adds the product, or removes it if already saved.
// Requires a session. Reports whether the product is saved afterwards.
func (sh *Shopper) ToggleWishlist(ctx context.Context, productID int64) (bool, error) {
	if _, err := sh.requireSession(ctx); err != nil {
		return false, err
	}

	unlock := sh.lock()
	defer unlock()

	entries, err := sh.state.wishlist(ctx)
	if err != nil {
		return false, model.NewInternalError(err)
	}

	if idx := entryIndex(entries, productID); idx >= 0 {
		entries = append(entries[:idx], entries[idx+1:]...)
		if err := sh.state.saveWishlist(ctx, entries); err != nil {
			return false, model.NewInternalError(err)
		}
		sh.logger.Info("removed from wishlist", "product_id", productID)
		return false, nil
	}

	// Only products being added need to exist in the catalog.
	product, err := sh.svc.catalog.Product(ctx, productID)
	if err != nil {
		return false, err
	}
	entries = append(entries, model.WishlistEntry{Product: *product, AddedAt: sh.svc.now()})
	if err := sh.state.saveWishlist(ctx, entries); err != nil {
		return false, model.NewInternalError(err)
	}
	sh.logger.Info("added to wishlist", "product_id", productID)
	return true, nil
}

// RemoveFromWishlist deletes the entry for productID. Missing entries are ignored.
func (sh *Shopper) RemoveFromWishlist(ctx context.Context, productID int64) ([]model.WishlistEntry, error) {
	unlock := sh.lock()
	defer unlock()

	entries, err := sh.state.wishlist(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if idx := entryIndex(entries, productID); idx >= 0 {
		entries = append(entries[:idx], entries[idx+1:]...)
	}
	if entries == nil {
		entries = []model.WishlistEntry{}
	}
	if err := sh.state.saveWishlist(ctx, entries); err != nil {
		return nil, model.NewInternalError(err)
	}
	return entries, nil
}

// ClearWishlist empties the wishlist.
func (sh *Shopper) ClearWishlist(ctx context.Context) error {
	unlock := sh.lock()
	defer unlock()

	if err := sh.state.remove(ctx, KeyWishlist); err != nil {
		return model.NewInternalError(err)
	}
	return nil
}

// MoveToCart adds a saved product to the cart and removes it from the wishlist.
// Both changes are persisted before returning. Requires a session.
func (sh *Shopper) MoveToCart(ctx context.Context, productID int64) (*model.Cart, error) {
	if _, err := sh.requireSession(ctx); err != nil {
		return nil, err
	}

	unlock := sh.lock()
	defer unlock()

	entries, err := sh.state.wishlist(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	idx := entryIndex(entries, productID)
	if idx < 0 {
		return nil, model.NewNotFoundError("wishlist entry")
	}
	product := entries[idx].Product

	lines, err := sh.addLine(ctx, product)
	if err != nil {
		return nil, err
	}

	entries = append(entries[:idx], entries[idx+1:]...)
	if err := sh.state.saveWishlist(ctx, entries); err != nil {
		return nil, model.NewInternalError(err)
	}

	sh.logger.Info("moved wishlist entry to cart", "product_id", productID)
	return model.NewCart(lines), nil
}

func entryIndex(entries []model.WishlistEntry, productID int64) int {
	for i := range entries {
		if entries[i].Product.ID == productID {
			return i
		}
	}
	return -1
}
