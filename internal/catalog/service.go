// Package catalog loads the remote product catalog, normalizes it, and
// reconciles it with the admin overlay. It also implements the admin
// operations that maintain the overlay.
package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bwmarrin/snowflake"

	"storefront/internal/model"
	"storefront/internal/reconcile"
	"storefront/internal/storage"
)

// Service serves the reconciled catalog.
type Service struct {
	source     Source
	overlay    *OverlayStore
	normalizer *Normalizer
	ids        *snowflake.Node
	logger     *slog.Logger

	// adminMu serializes overlay read-modify-write cycles.
	adminMu sync.Mutex
}

// NewService creates a catalog service.
// node generates ids for added products and for remote records without a usable id.
func NewService(source Source, store *storage.Store, node *snowflake.Node, logger *slog.Logger) *Service {
	return &Service{
		source:     source,
		overlay:    NewOverlayStore(store),
		normalizer: NewNormalizer(node),
		ids:        node,
		logger:     logger,
	}
}

// Products returns the reconciled catalog.
// Fetch failures surface as SourceUnavailable; there is no empty fallback.
func (s *Service) Products(ctx context.Context) ([]model.Product, error) {
	records, err := s.source.Fetch(ctx)
	if err != nil {
		s.logger.Warn("catalog fetch failed", "error", err)
		return nil, err
	}

	overlay, err := s.overlay.Load(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	remote := s.normalizer.NormalizeAll(records)
	products := reconcile.Merge(remote, overlay)

	s.logger.Debug("catalog reconciled",
		"remote", len(remote),
		"added", len(overlay.Added),
		"edited", len(overlay.Edited),
		"deleted", len(overlay.Deleted),
		"total", len(products),
	)
	return products, nil
}

// Product returns one product of the reconciled catalog.
func (s *Service) Product(ctx context.Context, id int64) (*model.Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, model.NewNotFoundError("product")
}

// Search returns the reconciled catalog narrowed by q.
func (s *Service) Search(ctx context.Context, q Query) ([]model.Product, error) {
	if !ValidSort(q.Sort) {
		return nil, model.NewValidationError("sort", "must be one of low-high, high-low, newest")
	}
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(products, q), nil
}

// Categories returns the distinct category labels of the reconciled catalog.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	return Categories(products), nil
}
