package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/promodeal-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupDealPurchaseRepositoryTest(t *testing.T) *GormDealPurchaseRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:deal_purchase_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database failed: %v", err)
	}
	if err := db.AutoMigrate(&models.DealPurchase{}); err != nil {
		t.Fatalf("migrate test database failed: %v", err)
	}
	return NewDealPurchaseRepository(db)
}

func TestSumQuantityByUser(t *testing.T) {
	repo := setupDealPurchaseRepositoryTest(t)
	now := time.Now()

	purchases := []models.DealPurchase{
		{DealID: 1, UserID: 1, OrderNo: "A-1", Quantity: 2, PurchasedAt: now},
		{DealID: 1, UserID: 1, OrderNo: "A-2", Quantity: 3, PurchasedAt: now},
		{DealID: 1, UserID: 2, OrderNo: "A-3", Quantity: 1, PurchasedAt: now},
		{DealID: 2, UserID: 1, OrderNo: "A-4", Quantity: 5, PurchasedAt: now},
	}
	for i := range purchases {
		if err := repo.Create(&purchases[i]); err != nil {
			t.Fatalf("create purchase failed: %v", err)
		}
	}

	total, err := repo.SumQuantityByUser(1, 1)
	if err != nil {
		t.Fatalf("sum quantity failed: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5 for user 1 in deal 1, got %d", total)
	}

	// 无购买记录时合计为 0
	total, err = repo.SumQuantityByUser(1, 99)
	if err != nil {
		t.Fatalf("sum quantity failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected total 0 for unknown user, got %d", total)
	}
}

func TestGetByOrderNo(t *testing.T) {
	repo := setupDealPurchaseRepositoryTest(t)

	purchase := &models.DealPurchase{DealID: 1, UserID: 1, OrderNo: "B-1", Quantity: 1, PurchasedAt: time.Now()}
	if err := repo.Create(purchase); err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}

	found, err := repo.GetByOrderNo("B-1")
	if err != nil {
		t.Fatalf("get by order no failed: %v", err)
	}
	if found == nil || found.ID != purchase.ID {
		t.Fatalf("expected to find purchase %d, got %+v", purchase.ID, found)
	}

	missing, err := repo.GetByOrderNo("B-404")
	if err != nil {
		t.Fatalf("get by order no failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown order no, got %+v", missing)
	}

	// 订单号唯一索引拒绝重复写入
	dup := &models.DealPurchase{DealID: 2, UserID: 2, OrderNo: "B-1", Quantity: 1, PurchasedAt: time.Now()}
	if err := repo.Create(dup); err == nil {
		t.Fatal("expected unique constraint violation for duplicate order no")
	}
}

func TestListByDealPagination(t *testing.T) {
	repo := setupDealPurchaseRepositoryTest(t)
	now := time.Now()

	for i := 0; i < 5; i++ {
		purchase := &models.DealPurchase{DealID: 7, UserID: uint(i + 1), OrderNo: fmt.Sprintf("C-%d", i), Quantity: 1, PurchasedAt: now}
		if err := repo.Create(purchase); err != nil {
			t.Fatalf("create purchase failed: %v", err)
		}
	}

	page1, total, err := repo.ListByDeal(7, 1, 2)
	if err != nil {
		t.Fatalf("list by deal failed: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(page1) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page1))
	}

	page3, _, err := repo.ListByDeal(7, 3, 2)
	if err != nil {
		t.Fatalf("list by deal failed: %v", err)
	}
	if len(page3) != 1 {
		t.Fatalf("expected last page of 1, got %d", len(page3))
	}
}
