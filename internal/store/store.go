package store

import "findlost/internal/domain"

// Store defines persistence operations for items and recoveries. Absent
// records are reported as (zero value, false, nil), not as errors.
type Store interface {
	// items
	SaveItem(domain.Item) error
	ListItems(email string) ([]domain.Item, error)
	GetItem(id string) (domain.Item, bool, error)
	SetItemImage(id, image string) error

	// recoveries
	SaveRecovery(domain.Recovery) error
	ListRecoveriesByClaimant(email string) ([]domain.Recovery, error)
	ListRecoveriesByItem(itemID string) ([]domain.Recovery, error)
	CountRecoveriesForItem(itemID string) (int64, error)
	SetRecoveryStatus(id, status string) (int64, error)
}
