package store

import (
	"fmt"
	"testing"
	"time"

	"findlost/internal/domain"
)

func itemFixture(id, email string) domain.Item {
	return domain.Item{
		ID:        id,
		Email:     email,
		Name:      "Wallet",
		Category:  "accessories",
		Status:    "lost",
		CreatedAt: time.Now().UTC(),
	}
}

func recoveryFixture(id, itemID, claimant string) domain.Recovery {
	return domain.Recovery{
		ID:            id,
		ItemID:        itemID,
		RecoveredDate: "2026-08-01",
		Status:        "pending",
		RecoveredBy:   domain.RecoveredBy{Name: "Alice", Email: claimant},
		CreatedAt:     time.Now().UTC(),
	}
}

func TestMemoryStoreListItemsFiltersByOwner(t *testing.T) {
	s := NewMemoryStore()
	for i, email := range []string{"a@x.com", "b@x.com", "a@x.com"} {
		if err := s.SaveItem(itemFixture(fmt.Sprintf("item-%d", i), email)); err != nil {
			t.Fatalf("save item: %v", err)
		}
	}

	all, err := s.ListItems("")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 items, got %d", len(all))
	}
	if all[0].ID != "item-0" || all[2].ID != "item-2" {
		t.Fatalf("insertion order not preserved: %v", all)
	}

	owned, err := s.ListItems("a@x.com")
	if err != nil {
		t.Fatalf("list owned: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("expected 2 owned items, got %d", len(owned))
	}
}

func TestMemoryStoreGetItemAbsent(t *testing.T) {
	s := NewMemoryStore()
	if _, ok, err := s.GetItem("missing"); err != nil || ok {
		t.Fatalf("expected absent item without error, ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreCountRecoveriesForItem(t *testing.T) {
	s := NewMemoryStore()
	for i := 0; i < 3; i++ {
		if err := s.SaveRecovery(recoveryFixture(fmt.Sprintf("rec-%d", i), "item-a", "a@x.com")); err != nil {
			t.Fatalf("save recovery: %v", err)
		}
	}
	if err := s.SaveRecovery(recoveryFixture("rec-other", "item-b", "a@x.com")); err != nil {
		t.Fatalf("save recovery: %v", err)
	}

	count, err := s.CountRecoveriesForItem("item-a")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	count, err = s.CountRecoveriesForItem("item-none")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
}

func TestMemoryStoreListRecoveriesByClaimant(t *testing.T) {
	s := NewMemoryStore()
	_ = s.SaveRecovery(recoveryFixture("rec-1", "item-a", "a@x.com"))
	_ = s.SaveRecovery(recoveryFixture("rec-2", "item-b", "b@x.com"))
	_ = s.SaveRecovery(recoveryFixture("rec-3", "item-c", "a@x.com"))

	recs, err := s.ListRecoveriesByClaimant("a@x.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "rec-1" || recs[1].ID != "rec-3" {
		t.Fatalf("unexpected claimant recoveries: %v", recs)
	}
}

func TestMemoryStoreSetRecoveryStatus(t *testing.T) {
	s := NewMemoryStore()
	_ = s.SaveRecovery(recoveryFixture("rec-1", "item-a", "a@x.com"))

	modified, err := s.SetRecoveryStatus("rec-1", "approved")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if modified != 1 {
		t.Fatalf("modified = %d, want 1", modified)
	}
	recs, _ := s.ListRecoveriesByItem("item-a")
	if len(recs) != 1 || recs[0].Status != "approved" {
		t.Fatalf("status not updated: %v", recs)
	}

	modified, err = s.SetRecoveryStatus("rec-missing", "approved")
	if err != nil {
		t.Fatalf("set status missing: %v", err)
	}
	if modified != 0 {
		t.Fatalf("modified = %d, want 0 for missing record", modified)
	}
}
