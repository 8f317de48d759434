package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"

	"storefront/internal/model"
)

func product(id int64, title string, usd int64) model.Product {
	return model.Product{
		ID:       id,
		Title:    title,
		Category: "Electric",
		PriceUSD: decimal.NewFromInt(usd),
		PriceIDR: model.USDToIDR(decimal.NewFromInt(usd)),
		Images:   []string{model.PlaceholderImage},
	}
}

func ids(products []model.Product) []int64 {
	out := make([]int64, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMerge_DeletedRemoteProduct(t *testing.T) {
	// Deleting the only remote product with no additions → empty catalog
	remote := []model.Product{product(1, "Tele", 500)}

	got := Merge(remote, Overlay{Deleted: []int64{1}})

	if len(got) != 0 {
		t.Errorf("Merge() = %v, want empty", ids(got))
	}
}

func TestMerge_EmptyOverlay(t *testing.T) {
	remote := []model.Product{product(1, "Tele", 500), product(2, "Strat", 700)}

	got := Merge(remote, Overlay{})

	if !equalIDs(ids(got), []int64{1, 2}) {
		t.Errorf("Merge() ids = %v, want [1 2]", ids(got))
	}
}

func TestMerge_EditedReplacesRemote(t *testing.T) {
	remote := []model.Product{product(1, "Tele", 500), product(2, "Strat", 700)}
	edit := product(2, "Strat Custom", 900)
	edit.IsCustom = true

	got := Merge(remote, Overlay{Edited: []model.Product{edit}})

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].Title != "Strat Custom" {
		t.Errorf("Title = %q, want %q", got[1].Title, "Strat Custom")
	}
	if !got[1].PriceUSD.Equal(decimal.NewFromInt(900)) {
		t.Errorf("PriceUSD = %s, want 900", got[1].PriceUSD)
	}
	if !got[1].IsCustom {
		t.Error("edited product should be marked custom")
	}
}

func TestMerge_EditForMissingRemoteIgnored(t *testing.T) {
	// Edits only substitute; they never introduce products on their own
	remote := []model.Product{product(1, "Tele", 500)}

	got := Merge(remote, Overlay{Edited: []model.Product{product(99, "Ghost", 1)}})

	if !equalIDs(ids(got), []int64{1}) {
		t.Errorf("Merge() ids = %v, want [1]", ids(got))
	}
}

func TestMerge_DeleteBeatsEdit(t *testing.T) {
	remote := []model.Product{product(1, "Tele", 500)}

	got := Merge(remote, Overlay{
		Edited:  []model.Product{product(1, "Tele Edited", 600)},
		Deleted: []int64{1},
	})

	if len(got) != 0 {
		t.Errorf("Merge() = %v, want empty", ids(got))
	}
}

func TestMerge_AddedPrependedAndWinDuplicates(t *testing.T) {
	remote := []model.Product{product(1, "Tele", 500), product(2, "Strat", 700)}
	added := product(2, "Local Strat", 100)
	added.IsCustom = true

	got := Merge(remote, Overlay{Added: []model.Product{product(10, "Les Paul", 1200), added}})

	if !equalIDs(ids(got), []int64{10, 2, 1}) {
		t.Fatalf("Merge() ids = %v, want [10 2 1]", ids(got))
	}
	if got[1].Title != "Local Strat" {
		t.Errorf("duplicate ID kept %q, want the added product", got[1].Title)
	}
}

func TestMerge_DuplicateRemoteIDs(t *testing.T) {
	remote := []model.Product{product(1, "First", 1), product(1, "Second", 2), product(3, "Third", 3)}

	got := Merge(remote, Overlay{})

	if !equalIDs(ids(got), []int64{1, 3}) {
		t.Fatalf("Merge() ids = %v, want [1 3]", ids(got))
	}
	if got[0].Title != "First" {
		t.Errorf("Title = %q, want First", got[0].Title)
	}
}

func TestMerge_Properties(t *testing.T) {
	remote := []model.Product{
		product(1, "a", 1), product(2, "b", 2), product(3, "c", 3),
		product(2, "b-dup", 2), product(4, "d", 4),
	}
	overlays := []Overlay{
		{},
		{Deleted: []int64{2, 4}},
		{Added: []model.Product{product(3, "x", 9), product(5, "y", 9)}},
		{Edited: []model.Product{product(1, "e1", 8)}, Deleted: []int64{3}},
		{
			Added:   []model.Product{product(4, "z", 1), product(4, "z2", 1)},
			Edited:  []model.Product{product(2, "e2", 8)},
			Deleted: []int64{1, 4},
		},
	}

	for i, o := range overlays {
		got := Merge(remote, o)

		seen := map[int64]bool{}
		for _, p := range got {
			if seen[p.ID] {
				t.Errorf("overlay %d: duplicate id %d in %v", i, p.ID, ids(got))
			}
			seen[p.ID] = true
		}

		addedIDs := map[int64]bool{}
		for _, p := range o.Added {
			addedIDs[p.ID] = true
		}
		for _, id := range o.Deleted {
			// Deletion suppresses remote products; an added product may reuse the ID
			if seen[id] && !addedIDs[id] {
				t.Errorf("overlay %d: deleted id %d present in %v", i, id, ids(got))
			}
		}

		for _, e := range o.Edited {
			if addedIDs[e.ID] {
				continue
			}
			for _, p := range got {
				if p.ID == e.ID && p.Title != e.Title {
					t.Errorf("overlay %d: id %d title = %q, want edited %q", i, e.ID, p.Title, e.Title)
				}
			}
		}
	}
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	added := []model.Product{product(10, "Added", 1)}
	remote := []model.Product{product(1, "Remote", 1)}

	got := Merge(remote, Overlay{Added: added})
	got[0].Title = "changed"

	if added[0].Title != "Added" {
		t.Error("Merge() result aliases the added slice")
	}
}

func TestReplaceAdded(t *testing.T) {
	added := []model.Product{product(10, "A", 1), product(11, "B", 1)}

	got, ok := ReplaceAdded(added, product(11, "B2", 2))
	if !ok {
		t.Fatal("ReplaceAdded() ok = false, want true")
	}
	if got[1].Title != "B2" || added[1].Title != "B" {
		t.Errorf("ReplaceAdded() = %q (input %q), want B2 with input untouched", got[1].Title, added[1].Title)
	}

	if _, ok := ReplaceAdded(added, product(99, "X", 1)); ok {
		t.Error("ReplaceAdded() unknown id ok = true, want false")
	}
}

func TestUpsertEdited(t *testing.T) {
	edited := UpsertEdited(nil, product(1, "v1", 1))
	edited = UpsertEdited(edited, product(2, "other", 1))
	edited = UpsertEdited(edited, product(1, "v2", 1))

	if len(edited) != 2 {
		t.Fatalf("len = %d, want 2", len(edited))
	}
	if edited[0].Title != "v2" {
		t.Errorf("Title = %q, want v2", edited[0].Title)
	}
}

func TestRemoveAdded(t *testing.T) {
	added := []model.Product{product(10, "A", 1), product(11, "B", 1)}

	got, ok := RemoveAdded(added, 10)
	if !ok || !equalIDs(ids(got), []int64{11}) {
		t.Errorf("RemoveAdded() = %v, %v; want [11], true", ids(got), ok)
	}
	if len(added) != 2 {
		t.Error("RemoveAdded() mutated its input")
	}

	if _, ok := RemoveAdded(added, 1); ok {
		t.Error("RemoveAdded() unknown id ok = true, want false")
	}
}

func TestAddDeleted(t *testing.T) {
	deleted := AddDeleted(nil, 3)
	deleted = AddDeleted(deleted, 3)
	deleted = AddDeleted(deleted, 4)

	if !equalIDs(deleted, []int64{3, 4}) {
		t.Errorf("AddDeleted() = %v, want [3 4]", deleted)
	}
}

func TestOverlayIsEmpty(t *testing.T) {
	if o := (Overlay{}); !o.IsEmpty() {
		t.Error("IsEmpty() = false for zero overlay")
	}
	if o := (Overlay{Deleted: []int64{1}}); o.IsEmpty() {
		t.Error("IsEmpty() = true with deleted ids")
	}
}
