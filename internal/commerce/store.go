package commerce

import (
	"context"

	"storefront/internal/model"
	"storefront/internal/storage"
)

// Keys of one profile's commerce state.
const (
	KeySession      = "session"
	KeyCart         = "cart"
	KeyWishlist     = "wishlist"
	KeyPendingOrder = "pending_order"
	KeyOrders       = "orders"
)

// KeyUsers holds the registered-user list in the shared namespace.
const KeyUsers = "users"

// profileState reads and writes one profile's keys. Every write is tagged
// with the tab that caused it.
type profileState struct {
	store     *storage.Store
	namespace string
	origin    string
}

func (p *profileState) session(ctx context.Context) (*model.Session, error) {
	s, err := storage.Load[*model.Session](ctx, p.store, p.namespace, KeySession)
	if err != nil {
		return nil, err
	}
	// A session without any identity is as good as none.
	if s != nil && s.Email == "" && s.Username == "" {
		return nil, nil
	}
	return s, nil
}

func (p *profileState) saveSession(ctx context.Context, s model.Session) error {
	return p.store.Save(ctx, p.namespace, KeySession, p.origin, s)
}

// cart drops lines a hand-edited or older store could carry with no quantity.
func (p *profileState) cart(ctx context.Context) ([]model.CartLine, error) {
	lines, err := storage.Load[[]model.CartLine](ctx, p.store, p.namespace, KeyCart)
	if err != nil {
		return nil, err
	}
	out := lines[:0]
	for _, l := range lines {
		if l.Quantity > 0 {
			out = append(out, l)
		}
	}
	return out, nil
}

func (p *profileState) saveCart(ctx context.Context, lines []model.CartLine) error {
	if lines == nil {
		lines = []model.CartLine{}
	}
	return p.store.Save(ctx, p.namespace, KeyCart, p.origin, lines)
}

func (p *profileState) wishlist(ctx context.Context) ([]model.WishlistEntry, error) {
	return storage.Load[[]model.WishlistEntry](ctx, p.store, p.namespace, KeyWishlist)
}

func (p *profileState) saveWishlist(ctx context.Context, entries []model.WishlistEntry) error {
	if entries == nil {
		entries = []model.WishlistEntry{}
	}
	return p.store.Save(ctx, p.namespace, KeyWishlist, p.origin, entries)
}

func (p *profileState) draft(ctx context.Context) (*model.Draft, error) {
	d, err := storage.Load[*model.Draft](ctx, p.store, p.namespace, KeyPendingOrder)
	if err != nil {
		return nil, err
	}
	if d != nil && len(d.Items) == 0 {
		return nil, nil
	}
	return d, nil
}

func (p *profileState) saveDraft(ctx context.Context, d model.Draft) error {
	return p.store.Save(ctx, p.namespace, KeyPendingOrder, p.origin, d)
}

func (p *profileState) orders(ctx context.Context) ([]model.Order, error) {
	return storage.Load[[]model.Order](ctx, p.store, p.namespace, KeyOrders)
}

func (p *profileState) saveOrders(ctx context.Context, orders []model.Order) error {
	return p.store.Save(ctx, p.namespace, KeyOrders, p.origin, orders)
}

func (p *profileState) remove(ctx context.Context, key string) error {
	return p.store.Remove(ctx, p.namespace, key, p.origin)
}

func loadUsers(ctx context.Context, store *storage.Store) ([]model.User, error) {
	return storage.Load[[]model.User](ctx, store, storage.SharedNamespace, KeyUsers)
}

func saveUsers(ctx context.Context, store *storage.Store, origin string, users []model.User) error {
	return store.Save(ctx, storage.SharedNamespace, KeyUsers, origin, users)
}
