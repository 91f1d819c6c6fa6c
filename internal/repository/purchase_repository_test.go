package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pharmacy-ms/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func buildTestPurchase(supplierID uuid.UUID, products []*domain.Product, quantities []int) (*domain.Purchase, []domain.PurchaseItem) {
	total := decimal.Zero
	purchaseID := uuid.New()
	items := make([]domain.PurchaseItem, 0, len(products))

	for i, p := range products {
		unitCost := p.UnitPrice.Mul(decimal.NewFromFloat(0.6)).Round(2)
		lineCost := unitCost.Mul(decimal.NewFromInt(int64(quantities[i])))
		total = total.Add(lineCost)
		items = append(items, domain.PurchaseItem{
			ID:         uuid.New(),
			PurchaseID: purchaseID,
			ProductID:  p.ID,
			Quantity:   quantities[i],
			UnitCost:   unitCost,
			LineCost:   lineCost,
		})
	}

	purchase := &domain.Purchase{
		ID:           purchaseID,
		UserID:       uuid.New(),
		SupplierID:   supplierID,
		PurchaseDate: time.Now(),
		Total:        total,
		Status:       domain.PurchasePending,
		Notes:        "restock",
		CreatedAt:    time.Now(),
	}
	return purchase, items
}

func insertTestPurchase(t *testing.T, supplierID uuid.UUID, products []*domain.Product, quantities []int) *domain.Purchase {
	t.Helper()

	purchase, items := buildTestPurchase(supplierID, products, quantities)
	if err := NewPurchaseRepository(testDB).CreatePurchase(context.Background(), purchase, items); err != nil {
		t.Fatalf("Failed to create purchase: %v", err)
	}
	t.Cleanup(func() {
		_, _ = testDB.Exec("DELETE FROM purchases WHERE id = $1", purchase.ID)
	})
	return purchase
}

func TestCreatePurchasePersistsHeaderAndItems(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRepository(testDB)
	productRepo := NewProductRepository(testDB)

	supplier := insertTestSupplier(t, "Create Depot "+uuid.New().String()[:8])
	ibuprofen := insertTestProduct(t, "PUR-"+uuid.New().String()[:8], decimal.NewFromFloat(3.20), 30, nil)
	cetirizine := insertTestProduct(t, "PUR-"+uuid.New().String()[:8], decimal.NewFromFloat(5.80), 12, nil)

	created := insertTestPurchase(t, supplier.ID, []*domain.Product{ibuprofen, cetirizine}, []int{50, 20})

	purchase, items, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}

	if purchase.Status != domain.PurchasePending {
		t.Errorf("Expected status pending, got %s", purchase.Status)
	}
	if !purchase.Total.Equal(created.Total) {
		t.Errorf("Expected total %s, got %s", created.Total, purchase.Total)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 purchase items, got %d", len(items))
	}

	// Ordering alone must not touch stock
	p, err := productRepo.FindByID(ctx, ibuprofen.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if p.Stock != 30 {
		t.Errorf("Expected stock 30 before completion, got %d", p.Stock)
	}
}

func TestFindPurchaseNotFound(t *testing.T) {
	repo := NewPurchaseRepository(testDB)

	_, _, err := repo.FindByID(context.Background(), uuid.New())
	if !errors.Is(err, ErrPurchaseNotFound) {
		t.Errorf("Expected ErrPurchaseNotFound, got %v", err)
	}
}

func TestCompletePurchaseIncrementsStock(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRepository(testDB)
	productRepo := NewProductRepository(testDB)

	supplier := insertTestSupplier(t, "Receive Depot "+uuid.New().String()[:8])
	paracetamol := insertTestProduct(t, "PUR-"+uuid.New().String()[:8], decimal.NewFromFloat(2.50), 8, nil)
	amoxicillin := insertTestProduct(t, "PUR-"+uuid.New().String()[:8], decimal.NewFromFloat(6.90), 0, nil)

	created := insertTestPurchase(t, supplier.ID, []*domain.Product{paracetamol, amoxicillin}, []int{100, 40})

	received, err := repo.CompletePurchase(ctx, created.ID)
	if err != nil {
		t.Fatalf("CompletePurchase failed: %v", err)
	}
	if len(received) != 2 {
		t.Fatalf("Expected 2 received lines, got %d", len(received))
	}

	purchase, _, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if purchase.Status != domain.PurchaseCompleted {
		t.Errorf("Expected status completed, got %s", purchase.Status)
	}

	p1, err := productRepo.FindByID(ctx, paracetamol.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if p1.Stock != 108 {
		t.Errorf("Expected stock 108 after receipt, got %d", p1.Stock)
	}

	p2, err := productRepo.FindByID(ctx, amoxicillin.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if p2.Stock != 40 {
		t.Errorf("Expected stock 40 after receipt, got %d", p2.Stock)
	}
}

func TestCompletePurchaseIsNotRepeatable(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRepository(testDB)
	productRepo := NewProductRepository(testDB)

	supplier := insertTestSupplier(t, "Repeat Depot "+uuid.New().String()[:8])
	product := insertTestProduct(t, "PUR-"+uuid.New().String()[:8], decimal.NewFromFloat(2.50), 10, nil)
	created := insertTestPurchase(t, supplier.ID, []*domain.Product{product}, []int{25})

	if _, err := repo.CompletePurchase(ctx, created.ID); err != nil {
		t.Fatalf("CompletePurchase failed: %v", err)
	}

	if _, err := repo.CompletePurchase(ctx, created.ID); !errors.Is(err, ErrPurchaseNotPending) {
		t.Errorf("Expected ErrPurchaseNotPending on second completion, got %v", err)
	}

	// Stock incremented exactly once
	p, err := productRepo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if p.Stock != 35 {
		t.Errorf("Expected stock 35, got %d", p.Stock)
	}
}

func TestConcurrentCompletionsIncrementStockOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRepository(testDB)
	productRepo := NewProductRepository(testDB)

	supplier := insertTestSupplier(t, "Race Depot "+uuid.New().String()[:8])
	product := insertTestProduct(t, "PUR-"+uuid.New().String()[:8], decimal.NewFromFloat(2.50), 0, nil)
	created := insertTestPurchase(t, supplier.ID, []*domain.Product{product}, []int{60})

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.CompletePurchase(ctx, created.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrPurchaseNotPending) {
			t.Errorf("Unexpected completion error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("Expected exactly 1 successful completion, got %d", succeeded)
	}

	p, err := productRepo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if p.Stock != 60 {
		t.Errorf("Expected stock 60, got %d", p.Stock)
	}
}

func TestCompletePurchaseNotFound(t *testing.T) {
	repo := NewPurchaseRepository(testDB)

	_, err := repo.CompletePurchase(context.Background(), uuid.New())
	if !errors.Is(err, ErrPurchaseNotFound) {
		t.Errorf("Expected ErrPurchaseNotFound, got %v", err)
	}
}

func TestCancelPurchaseLeavesStockAlone(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRepository(testDB)
	productRepo := NewProductRepository(testDB)

	supplier := insertTestSupplier(t, "Cancel Depot "+uuid.New().String()[:8])
	product := insertTestProduct(t, "PUR-"+uuid.New().String()[:8], decimal.NewFromFloat(2.50), 17, nil)
	created := insertTestPurchase(t, supplier.ID, []*domain.Product{product}, []int{30})

	if err := repo.CancelPurchase(ctx, created.ID); err != nil {
		t.Fatalf("CancelPurchase failed: %v", err)
	}

	purchase, _, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if purchase.Status != domain.PurchaseCancelled {
		t.Errorf("Expected status cancelled, got %s", purchase.Status)
	}

	p, err := productRepo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if p.Stock != 17 {
		t.Errorf("Expected stock 17, got %d", p.Stock)
	}

	// A cancelled order can no longer be received
	if _, err := repo.CompletePurchase(ctx, created.ID); !errors.Is(err, ErrPurchaseNotPending) {
		t.Errorf("Expected ErrPurchaseNotPending after cancellation, got %v", err)
	}
}

func TestListPurchasesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRepository(testDB)

	supplier := insertTestSupplier(t, "List Depot "+uuid.New().String()[:8])
	product := insertTestProduct(t, "PUR-"+uuid.New().String()[:8], decimal.NewFromFloat(2.50), 5, nil)

	first := insertTestPurchase(t, supplier.ID, []*domain.Product{product}, []int{1})
	time.Sleep(10 * time.Millisecond)
	second := insertTestPurchase(t, supplier.ID, []*domain.Product{product}, []int{2})

	purchases, total, err := repo.List(ctx, 100, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total < 2 {
		t.Fatalf("Expected total >= 2, got %d", total)
	}

	posFirst, posSecond := -1, -1
	for i, p := range purchases {
		switch p.ID {
		case first.ID:
			posFirst = i
		case second.ID:
			posSecond = i
		}
	}
	if posFirst == -1 || posSecond == -1 {
		t.Fatalf("Created purchases missing from list")
	}
	if posSecond > posFirst {
		t.Errorf("Expected newest purchase first")
	}
}

func TestPurchaseItemExpiryRoundTrips(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRepository(testDB)

	supplier := insertTestSupplier(t, "Expiry Depot "+uuid.New().String()[:8])
	product := insertTestProduct(t, "PUR-"+uuid.New().String()[:8], decimal.NewFromFloat(2.50), 5, nil)

	expiry := time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC)
	purchase, items := buildTestPurchase(supplier.ID, []*domain.Product{product}, []int{10})
	items[0].Expiry = &expiry

	if err := repo.CreatePurchase(ctx, purchase, items); err != nil {
		t.Fatalf("CreatePurchase failed: %v", err)
	}
	t.Cleanup(func() {
		_, _ = testDB.Exec("DELETE FROM purchases WHERE id = $1", purchase.ID)
	})

	_, stored, err := repo.FindByID(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("Expected 1 purchase item, got %d", len(stored))
	}
	if stored[0].Expiry == nil || !stored[0].Expiry.Equal(expiry) {
		t.Errorf("Expected expiry %s, got %v", expiry, stored[0].Expiry)
	}
}
