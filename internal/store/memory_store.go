package store

import (
	"sync"

	"findlost/internal/domain"
)

// MemoryStore keeps records in-process. Used in tests and as a reference
// implementation of the Store contract.
type MemoryStore struct {
	mu            sync.RWMutex
	items         map[string]domain.Item
	itemOrder     []string
	recoveries    map[string]domain.Recovery
	recoveryOrder []string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:      make(map[string]domain.Item),
		recoveries: make(map[string]domain.Recovery),
	}
}

// SaveItem stores an item record and tracks insertion order.
func (m *MemoryStore) SaveItem(item domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[item.ID]; !exists {
		m.itemOrder = append(m.itemOrder, item.ID)
	}
	m.items[item.ID] = item
	return nil
}

// ListItems returns items in insertion order, optionally filtered by owner.
func (m *MemoryStore) ListItems(email string) ([]domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Item, 0, len(m.itemOrder))
	for _, id := range m.itemOrder {
		item, ok := m.items[id]
		if !ok {
			continue
		}
		if email != "" && item.Email != email {
			continue
		}
		res = append(res, item)
	}
	return res, nil
}

// GetItem retrieves a single item.
func (m *MemoryStore) GetItem(id string) (domain.Item, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	return item, ok, nil
}

// SetItemImage stamps the image field of an item.
func (m *MemoryStore) SetItemImage(id, image string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil
	}
	item.Image = image
	m.items[id] = item
	return nil
}

// SaveRecovery stores a recovery record and tracks insertion order.
func (m *MemoryStore) SaveRecovery(rec domain.Recovery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.recoveries[rec.ID]; !exists {
		m.recoveryOrder = append(m.recoveryOrder, rec.ID)
	}
	m.recoveries[rec.ID] = rec
	return nil
}

// ListRecoveriesByClaimant returns recoveries filed by the given email.
func (m *MemoryStore) ListRecoveriesByClaimant(email string) ([]domain.Recovery, error) {
	return m.listRecoveries(func(r domain.Recovery) bool {
		return r.RecoveredBy.Email == email
	}), nil
}

// ListRecoveriesByItem returns recoveries referencing the given item.
func (m *MemoryStore) ListRecoveriesByItem(itemID string) ([]domain.Recovery, error) {
	return m.listRecoveries(func(r domain.Recovery) bool {
		return r.ItemID == itemID
	}), nil
}

func (m *MemoryStore) listRecoveries(keep func(domain.Recovery) bool) []domain.Recovery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Recovery, 0, len(m.recoveryOrder))
	for _, id := range m.recoveryOrder {
		rec, ok := m.recoveries[id]
		if ok && keep(rec) {
			res = append(res, rec)
		}
	}
	return res
}

// CountRecoveriesForItem counts recoveries whose itemId matches.
func (m *MemoryStore) CountRecoveriesForItem(itemID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, rec := range m.recoveries {
		if rec.ItemID == itemID {
			count++
		}
	}
	return count, nil
}

// SetRecoveryStatus updates the status field when the record exists.
func (m *MemoryStore) SetRecoveryStatus(id, status string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recoveries[id]
	if !ok {
		return 0, nil
	}
	rec.Status = status
	m.recoveries[id] = rec
	return 1, nil
}
