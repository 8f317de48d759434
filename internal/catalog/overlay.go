package catalog

import (
	"context"

	"storefront/internal/model"
	"storefront/internal/reconcile"
	"storefront/internal/storage"
)

// Overlay keys in the shared namespace.
const (
	KeyAdded   = "overlay.added"
	KeyEdited  = "overlay.edited"
	KeyDeleted = "overlay.deleted"
)

// OverlayStore persists the admin overlay. Malformed collections read as empty.
type OverlayStore struct {
	store *storage.Store
}

// NewOverlayStore creates an overlay store on the shared namespace of store.
func NewOverlayStore(store *storage.Store) *OverlayStore {
	return &OverlayStore{store: store}
}

// Load reads all three overlay collections.
func (o *OverlayStore) Load(ctx context.Context) (reconcile.Overlay, error) {
	added, err := storage.Load[[]model.Product](ctx, o.store, storage.SharedNamespace, KeyAdded)
	if err != nil {
		return reconcile.Overlay{}, err
	}
	edited, err := storage.Load[[]model.Product](ctx, o.store, storage.SharedNamespace, KeyEdited)
	if err != nil {
		return reconcile.Overlay{}, err
	}
	deleted, err := storage.Load[[]int64](ctx, o.store, storage.SharedNamespace, KeyDeleted)
	if err != nil {
		return reconcile.Overlay{}, err
	}
	return reconcile.Overlay{Added: added, Edited: edited, Deleted: deleted}, nil
}

func (o *OverlayStore) SaveAdded(ctx context.Context, origin string, added []model.Product) error {
	return o.store.Save(ctx, storage.SharedNamespace, KeyAdded, origin, nonNil(added))
}

func (o *OverlayStore) SaveEdited(ctx context.Context, origin string, edited []model.Product) error {
	return o.store.Save(ctx, storage.SharedNamespace, KeyEdited, origin, nonNil(edited))
}

func (o *OverlayStore) SaveDeleted(ctx context.Context, origin string, deleted []int64) error {
	if deleted == nil {
		deleted = []int64{}
	}
	return o.store.Save(ctx, storage.SharedNamespace, KeyDeleted, origin, deleted)
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil(products []model.Product) []model.Product {
	if products == nil {
		return []model.Product{}
	}
	return products
}
