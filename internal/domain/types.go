package domain

import "time"

// Item is a lost or found posting. Name, category, image and status are the
// fields the API projects elsewhere; everything else the client sends rides
// along in Attributes unchecked.
type Item struct {
	ID         string         `json:"id"`
	Email      string         `json:"email"`
	Name       string         `json:"name"`
	Category   string         `json:"category"`
	Image      string         `json:"image,omitempty"`
	Status     string         `json:"status"`
	Attributes map[string]any `json:"attributes,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// ItemWithRecoveries annotates an item with the number of recovery claims
// filed against it.
type ItemWithRecoveries struct {
	Item
	RecoveryCount int64 `json:"recovery_count"`
}

// RecoveredBy identifies the claimant of a recovery. It is populated from the
// verified token identity, never from the request body.
type RecoveredBy struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// Recovery is a claim that an item has been recovered. ItemID is a plain-text
// reference; the store does not enforce that the item exists.
type Recovery struct {
	ID            string      `json:"id"`
	ItemID        string      `json:"itemId"`
	RecoveredDate string      `json:"recoveredDate"`
	Status        string      `json:"status"`
	RecoveredBy   RecoveredBy `json:"recoveredBy"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// EnrichedRecovery is a recovery projected with a subset of fields from its
// referenced item. The item fields stay empty when the item no longer exists.
type EnrichedRecovery struct {
	Recovery
	ItemName     string `json:"itemName,omitempty"`
	ItemCategory string `json:"itemCategory,omitempty"`
	ItemImage    string `json:"itemImage,omitempty"`
	ItemStatus   string `json:"itemStatus,omitempty"`
}

// Identity is the caller identity decoded from a verified session token. It
// lives only for the duration of a request.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Photo string `json:"photo,omitempty"`
}
