package catalog

import (
	"context"
	"strings"

	"storefront/internal/model"
	"storefront/internal/reconcile"
)

// AddProduct creates a locally added product from input.
// The id is generated from the creation time.
func (s *Service) AddProduct(ctx context.Context, origin string, input model.ProductInput) (*model.Product, error) {
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}

	s.adminMu.Lock()
	defer s.adminMu.Unlock()

	overlay, err := s.overlay.Load(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	p := model.Product{ID: s.ids.Generate().Int64(), IsCustom: true}
	input.Apply(&p)

	if err := s.overlay.SaveAdded(ctx, origin, append(overlay.Added, p)); err != nil {
		return nil, model.NewInternalError(err)
	}

	s.logger.Info("product added", "id", p.ID, "title", p.Title)
	return &p, nil
}

// EditProduct replaces product id with input.
// Added products are replaced in place; remote products get an edited version
// that shadows the remote record from then on.
func (s *Service) EditProduct(ctx context.Context, origin string, id int64, input model.ProductInput) (*model.Product, error) {
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}

	s.adminMu.Lock()
	defer s.adminMu.Unlock()

	overlay, err := s.overlay.Load(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	for _, existing := range overlay.Added {
		if existing.ID != id {
			continue
		}
		p := existing
		input.Apply(&p)
		p.IsCustom = true
		added, _ := reconcile.ReplaceAdded(overlay.Added, p)
		if err := s.overlay.SaveAdded(ctx, origin, added); err != nil {
			return nil, model.NewInternalError(err)
		}
		s.logger.Info("added product edited", "id", id)
		return &p, nil
	}

	// Remote products must exist in the current catalog to be edited.
	current, err := s.Product(ctx, id)
	if err != nil {
		return nil, err
	}

	p := *current
	input.Apply(&p)
	p.IsCustom = true
	if err := s.overlay.SaveEdited(ctx, origin, reconcile.UpsertEdited(overlay.Edited, p)); err != nil {
		return nil, model.NewInternalError(err)
	}

	s.logger.Info("remote product edited", "id", id)
	return &p, nil
}

// DeleteProduct removes product id from the catalog.
// Added products are dropped from the overlay; remote products are suppressed
// by recording their id as deleted.
func (s *Service) DeleteProduct(ctx context.Context, origin string, id int64) error {
	s.adminMu.Lock()
	defer s.adminMu.Unlock()

	overlay, err := s.overlay.Load(ctx)
	if err != nil {
		return model.NewInternalError(err)
	}

	if added, ok := reconcile.RemoveAdded(overlay.Added, id); ok {
		if err := s.overlay.SaveAdded(ctx, origin, added); err != nil {
			return model.NewInternalError(err)
		}
		s.logger.Info("added product deleted", "id", id)
		return nil
	}

	if _, err := s.Product(ctx, id); err != nil {
		return err
	}

	if err := s.overlay.SaveDeleted(ctx, origin, reconcile.AddDeleted(overlay.Deleted, id)); err != nil {
		return model.NewInternalError(err)
	}
	s.logger.Info("remote product deleted", "id", id)
	return nil
}

// validateInput checks required fields and prices, and derives a missing rupiah price.
func (s *Service) validateInput(input *model.ProductInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Category = strings.TrimSpace(input.Category)
	input.Image = strings.TrimSpace(input.Image)

	if err := model.Validate(input); err != nil {
		return err
	}
	if input.PriceUSD.IsNegative() {
		return model.NewValidationError("price_usd", "must not be negative")
	}
	if input.PriceIDR.IsNegative() {
		return model.NewValidationError("price_idr", "must not be negative")
	}
	if input.PriceIDR.IsZero() {
		input.PriceIDR = model.USDToIDR(input.PriceUSD)
	}
	return nil
}
