// Package reconcile merges the remote catalog with the local product overlay.
// Everything here is a pure function over already-normalized products: callers
// load the remote catalog and the overlay, merge, and persist overlay changes
// themselves.
package reconcile

import "storefront/internal/model"

// Overlay is the locally stored layer of admin changes on top of the remote catalog.
type Overlay struct {
	Added   []model.Product // Locally created products, newest last
	Edited  []model.Product // Replacements for remote products, matched by ID
	Deleted []int64         // Remote product IDs to suppress
}

// IsEmpty returns true if the overlay changes nothing.
func (o *Overlay) IsEmpty() bool {
	return len(o.Added) == 0 && len(o.Edited) == 0 && len(o.Deleted) == 0
}

// Merge produces the reconciled catalog from normalized remote products and the overlay.
//
// Algorithm:
//  1. Drop remote products whose ID is in Deleted
//  2. Substitute the Edited product with the same ID, if any
//  3. Prepend Added
//  4. De-duplicate by ID keeping the first occurrence
//
// The result never aliases remote or overlay slices.
func Merge(remote []model.Product, overlay Overlay) []model.Product {
	deleted := make(map[int64]bool, len(overlay.Deleted))
	for _, id := range overlay.Deleted {
		deleted[id] = true
	}

	// Later edits of the same ID win, matching how edits are upserted.
	edited := make(map[int64]model.Product, len(overlay.Edited))
	for _, p := range overlay.Edited {
		edited[p.ID] = p
	}

	merged := make([]model.Product, 0, len(overlay.Added)+len(remote))
	merged = append(merged, overlay.Added...)
	for _, p := range remote {
		if deleted[p.ID] {
			continue
		}
		if e, ok := edited[p.ID]; ok {
			p = e
		}
		merged = append(merged, p)
	}

	return dedupe(merged)
}

// dedupe keeps the first product for each ID, preserving order.
func dedupe(products []model.Product) []model.Product {
	seen := make(map[int64]bool, len(products))
	out := products[:0]
	for _, p := range products {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// ReplaceAdded swaps the added product with p.ID for p.
// Returns false if no added product has that ID.
func ReplaceAdded(added []model.Product, p model.Product) ([]model.Product, bool) {
	for i := range added {
		if added[i].ID == p.ID {
			out := append([]model.Product(nil), added...)
			out[i] = p
			return out, true
		}
	}
	return added, false
}

// UpsertEdited records p as the edited version of the remote product with the same ID.
func UpsertEdited(edited []model.Product, p model.Product) []model.Product {
	out := append([]model.Product(nil), edited...)
	for i := range out {
		if out[i].ID == p.ID {
			out[i] = p
			return out
		}
	}
	return append(out, p)
}

// RemoveAdded drops the added product with id.
// Returns false if no added product has that ID.
func RemoveAdded(added []model.Product, id int64) ([]model.Product, bool) {
	out := make([]model.Product, 0, len(added))
	found := false
	for _, p := range added {
		if p.ID == id {
			found = true
			continue
		}
		out = append(out, p)
	}
	if !found {
		return added, false
	}
	return out, true
}

// AddDeleted adds id to the deleted set. Already-deleted IDs are not repeated.
func AddDeleted(deleted []int64, id int64) []int64 {
	for _, d := range deleted {
		if d == id {
			return deleted
		}
	}
	return append(append([]int64(nil), deleted...), id)
}
