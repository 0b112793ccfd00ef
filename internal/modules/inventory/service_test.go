package inventory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// flakyRepository fails writes while failWrites is set.
type flakyRepository struct {
	Repository
	failWrites bool
}

var errDiskFull = errors.New("disk full")

func (r *flakyRepository) Put(ctx context.Context, p *Product) error {
	if r.failWrites {
		return errDiskFull
	}
	return r.Repository.Put(ctx, p)
}

func (r *flakyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r.failWrites {
		return errDiskFull
	}
	return r.Repository.Delete(ctx, id)
}

func newTestService(t *testing.T) (*service, Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	repo, err := NewFileRepository(path)
	if err != nil {
		t.Fatalf("NewFileRepository: %v", err)
	}
	svc := NewService(repo, zap.NewNop(), StockHigh).(*service)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, repo, path
}

func level(l StockLevel) ProductPatch { return ProductPatch{StockLevel: &l} }

func mustUpdate(t *testing.T, svc Service, id string, patch ProductPatch) *Product {
	t.Helper()
	p, err := svc.UpdateProduct(context.Background(), id, patch)
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	return p
}

func shoppingListLen(t *testing.T, svc Service) int {
	t.Helper()
	items, err := svc.ListShoppingListItems(context.Background())
	if err != nil {
		t.Fatalf("ListShoppingListItems: %v", err)
	}
	return len(items)
}

func TestAddProductDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)
	p, err := svc.AddProduct(context.Background(), AddProductRequest{Name: "  Cheese "})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	if p.Name != "Cheese" || p.StockLevel != StockHigh || p.IsOnShoppingList {
		t.Fatalf("unexpected product: %+v", p)
	}
	if p.ID == uuid.Nil || !p.CreatedAt.Equal(p.UpdatedAt) {
		t.Fatalf("id and timestamps not assigned: %+v", p)
	}
}

func TestAddProductCallerLevel(t *testing.T) {
	svc, _, _ := newTestService(t)
	p, err := svc.AddProduct(context.Background(), AddProductRequest{Name: "Rice", StockLevel: StockMedium})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	if p.StockLevel != StockMedium || p.IsOnShoppingList {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestAddProductRejectsEmptyName(t *testing.T) {
	svc, repo, _ := newTestService(t)
	if _, err := svc.AddProduct(context.Background(), AddProductRequest{Name: "   "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.AddProduct(context.Background(), AddProductRequest{Name: "Tea", StockLevel: "lots"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown level, got %v", err)
	}
	all, _ := repo.Filter(context.Background(), nil)
	if len(all) != 0 {
		t.Fatalf("nothing should be persisted, got %d", len(all))
	}
}

func TestCheeseScenario(t *testing.T) {
	svc, _, _ := newTestService(t)
	p, _ := svc.AddProduct(context.Background(), AddProductRequest{Name: "Cheese"})
	if p.IsOnShoppingList {
		t.Fatalf("new product should be off the list")
	}
	if got := mustUpdate(t, svc, p.ID.String(), level(StockLow)); !got.IsOnShoppingList {
		t.Fatalf("low should put it on the list")
	}
	if got := mustUpdate(t, svc, p.ID.String(), level(StockHigh)); got.IsOnShoppingList {
		t.Fatalf("high should take it off the list")
	}
}

func TestYogurtScenario(t *testing.T) {
	svc, _, _ := newTestService(t)
	p, _ := svc.AddProduct(context.Background(), AddProductRequest{Name: "Yogurt"})
	id := p.ID.String()
	steps := []struct {
		level  StockLevel
		onList bool
		items  int
	}{
		{StockLow, true, 1},
		{StockHigh, false, 0},
		{StockEmpty, true, 1},
		{StockMedium, true, 1},
		{StockHigh, false, 0},
	}
	for i, step := range steps {
		got := mustUpdate(t, svc, id, level(step.level))
		if got.IsOnShoppingList != step.onList {
			t.Fatalf("step %d (%s): on list %v, want %v", i, step.level, got.IsOnShoppingList, step.onList)
		}
		if n := shoppingListLen(t, svc); n != step.items {
			t.Fatalf("step %d (%s): %d items, want %d", i, step.level, n, step.items)
		}
	}
}

func TestMediumKeepsPreviousFlag(t *testing.T) {
	svc, _, _ := newTestService(t)
	p, _ := svc.AddProduct(context.Background(), AddProductRequest{Name: "Butter"})
	if got := mustUpdate(t, svc, p.ID.String(), level(StockMedium)); got.IsOnShoppingList {
		t.Fatalf("medium from off-list must stay off")
	}
	mustUpdate(t, svc, p.ID.String(), level(StockEmpty))
	if got := mustUpdate(t, svc, p.ID.String(), level(StockMedium)); !got.IsOnShoppingList {
		t.Fatalf("medium from on-list must stay on")
	}
}

func TestRepeatedLevelIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	p, _ := svc.AddProduct(context.Background(), AddProductRequest{Name: "Flour"})
	for _, l := range []StockLevel{StockLow, StockMedium, StockHigh, StockEmpty} {
		once := mustUpdate(t, svc, p.ID.String(), level(l))
		twice := mustUpdate(t, svc, p.ID.String(), level(l))
		if once.IsOnShoppingList != twice.IsOnShoppingList {
			t.Fatalf("%s toggled the flag", l)
		}
	}
}

func TestNamePatchLeavesFlagAlone(t *testing.T) {
	svc, _, _ := newTestService(t)
	p, _ := svc.AddProduct(context.Background(), AddProductRequest{Name: "Juice"})
	mustUpdate(t, svc, p.ID.String(), level(StockLow))
	name := "Orange Juice"
	got := mustUpdate(t, svc, p.ID.String(), ProductPatch{Name: &name})
	if got.Name != "Orange Juice" || !got.IsOnShoppingList || got.StockLevel != StockLow {
		t.Fatalf("unexpected product: %+v", got)
	}
	empty := " "
	if _, err := svc.UpdateProduct(context.Background(), p.ID.String(), ProductPatch{Name: &empty}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateRefreshesUpdatedAtAndPersists(t *testing.T) {
	svc, _, path := newTestService(t)
	p, _ := svc.AddProduct(context.Background(), AddProductRequest{Name: "Coffee"})
	got := mustUpdate(t, svc, p.ID.String(), level(StockEmpty))
	if !got.UpdatedAt.After(p.UpdatedAt) || !got.CreatedAt.Equal(p.CreatedAt) {
		t.Fatalf("timestamps: created %v/%v updated %v/%v", p.CreatedAt, got.CreatedAt, p.UpdatedAt, got.UpdatedAt)
	}

	reopened, err := NewFileRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	stored, err := reopened.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.StockLevel != got.StockLevel || stored.IsOnShoppingList != got.IsOnShoppingList {
		t.Fatalf("stored %+v differs from returned %+v", stored, got)
	}
}

func TestUpdateUnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.UpdateProduct(context.Background(), uuid.NewString(), level(StockLow)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.UpdateProduct(context.Background(), "not-an-id", level(StockLow)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestDeleteUnknownProductLeavesStoreUnchanged(t *testing.T) {
	svc, repo, _ := newTestService(t)
	p, _ := svc.AddProduct(context.Background(), AddProductRequest{Name: "Honey"})
	before, _ := repo.Filter(context.Background(), nil)

	if err := svc.DeleteProduct(context.Background(), uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	after, _ := repo.Filter(context.Background(), nil)
	if len(after) != len(before) || after[0].ID != p.ID {
		t.Fatalf("store changed: before %+v after %+v", before, after)
	}

	if err := svc.DeleteProduct(context.Background(), p.ID.String()); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if _, err := svc.GetProduct(context.Background(), p.ID.String()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStoreFailureRejectsWholeUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	base, err := NewFileRepository(path)
	if err != nil {
		t.Fatalf("NewFileRepository: %v", err)
	}
	repo := &flakyRepository{Repository: base}
	svc := NewService(repo, zap.NewNop(), "")
	p, err := svc.AddProduct(context.Background(), AddProductRequest{Name: "Pasta"})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	repo.failWrites = true
	if _, err := svc.UpdateProduct(context.Background(), p.ID.String(), level(StockEmpty)); !errors.Is(err, ErrStore) || !errors.Is(err, errDiskFull) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if _, err := svc.AddProduct(context.Background(), AddProductRequest{Name: "Sauce"}); !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore on add, got %v", err)
	}
	if err := svc.DeleteProduct(context.Background(), p.ID.String()); !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore on delete, got %v", err)
	}

	stored, _ := base.Get(context.Background(), p.ID)
	if stored.StockLevel != StockHigh || stored.IsOnShoppingList || !stored.UpdatedAt.Equal(p.UpdatedAt) {
		t.Fatalf("failed update leaked into the store: %+v", stored)
	}
}

func TestImportCandidates(t *testing.T) {
	svc, _, _ := newTestService(t)
	milk, _ := svc.AddProduct(context.Background(), AddProductRequest{Name: "Whole Milk"})
	mustUpdate(t, svc, milk.ID.String(), level(StockEmpty))

	result, err := svc.ImportCandidates(context.Background(), []string{"whole  milk", "Bananas", "", "BANANAS", "Cheddar Cheese"})
	if err != nil {
		t.Fatalf("ImportCandidates: %v", err)
	}
	if len(result.Restocked) != 1 || result.Restocked[0].ID != milk.ID {
		t.Fatalf("expected milk restocked: %+v", result.Restocked)
	}
	if result.Restocked[0].StockLevel != StockHigh || result.Restocked[0].IsOnShoppingList {
		t.Fatalf("restocked product should be high and off the list: %+v", result.Restocked[0])
	}
	if len(result.Added) != 2 || result.Added[0].Name != "Bananas" || result.Added[1].Name != "Cheddar Cheese" {
		t.Fatalf("unexpected added: %+v", result.Added)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "BANANAS" {
		t.Fatalf("unexpected skipped: %+v", result.Skipped)
	}
	if n := shoppingListLen(t, svc); n != 0 {
		t.Fatalf("expected empty shopping list, got %d", n)
	}
	all, _ := svc.ListProducts(context.Background())
	if len(all) != 3 {
		t.Fatalf("expected 3 products, got %d", len(all))
	}
}
