package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"findlost/internal/domain"
	"findlost/internal/storage"
	"findlost/internal/store"
)

// enrichmentConcurrency bounds the per-recovery item lookup fan-out.
const enrichmentConcurrency = 8

const imageURLExpiry = 15 * time.Minute

// Config wires dependencies for the core application.
type Config struct {
	Store  store.Store
	Images storage.ObjectStore // optional; image endpoints fail without it
}

// App holds the decision logic between the HTTP layer and the store: item and
// recovery operations, validation, and cross-record enrichment.
type App struct {
	store  store.Store
	images storage.ObjectStore
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &App{
		store:  cfg.Store,
		images: cfg.Images,
	}, nil
}

// CreateItem inserts an item built from the raw request payload. Known fields
// are lifted into columns; everything else is kept verbatim as attributes.
// No schema validation is applied.
func (a *App) CreateItem(payload map[string]any) (domain.Item, error) {
	item := domain.Item{
		ID:        uuid.NewString(),
		Email:     liftString(payload, "email"),
		Name:      liftString(payload, "name"),
		Category:  liftString(payload, "category"),
		Image:     liftString(payload, "image"),
		Status:    liftString(payload, "status"),
		CreatedAt: time.Now().UTC(),
	}
	if len(payload) > 0 {
		item.Attributes = payload
	}
	if err := a.store.SaveItem(item); err != nil {
		return domain.Item{}, fmt.Errorf("save item: %w", err)
	}
	return item, nil
}

// ListItems returns all items, or only those owned by email when supplied.
func (a *App) ListItems(email string) ([]domain.Item, error) {
	return a.store.ListItems(email)
}

// ListItemsWithRecoveryCounts annotates each listed item with the number of
// recovery claims referencing it. One count query per item; fine at this
// scale, a liability at large scale.
func (a *App) ListItemsWithRecoveryCounts(email string) ([]domain.ItemWithRecoveries, error) {
	items, err := a.store.ListItems(email)
	if err != nil {
		return nil, err
	}
	res := make([]domain.ItemWithRecoveries, 0, len(items))
	for _, item := range items {
		count, err := a.store.CountRecoveriesForItem(item.ID)
		if err != nil {
			return nil, fmt.Errorf("count recoveries for %s: %w", item.ID, err)
		}
		res = append(res, domain.ItemWithRecoveries{Item: item, RecoveryCount: count})
	}
	return res, nil
}

// GetItem fetches a single item. Absence is not an error.
func (a *App) GetItem(id string) (domain.Item, bool, error) {
	return a.store.GetItem(id)
}

// RecoveriesByClaimant returns the recoveries filed by the given email, each
// enriched with name/category/image/status projected from its referenced
// item. Lookups run concurrently and each goroutine writes only its own slice
// element, so listing order is preserved. Enrichment is best-effort: a
// recovery whose item no longer exists is returned unenriched.
func (a *App) RecoveriesByClaimant(email string) ([]domain.EnrichedRecovery, error) {
	recs, err := a.store.ListRecoveriesByClaimant(email)
	if err != nil {
		return nil, err
	}
	enriched := make([]domain.EnrichedRecovery, len(recs))
	var g errgroup.Group
	g.SetLimit(enrichmentConcurrency)
	for i, rec := range recs {
		g.Go(func() error {
			enriched[i] = domain.EnrichedRecovery{Recovery: rec}
			item, ok, err := a.store.GetItem(rec.ItemID)
			if err != nil {
				return fmt.Errorf("enrich recovery %s: %w", rec.ID, err)
			}
			if !ok {
				slog.Debug("recovery references missing item", "recovery_id", rec.ID, "item_id", rec.ItemID)
				return nil
			}
			enriched[i].ItemName = item.Name
			enriched[i].ItemCategory = item.Category
			enriched[i].ItemImage = item.Image
			enriched[i].ItemStatus = item.Status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return enriched, nil
}

// RecoveriesByItem returns all recoveries referencing the given item.
func (a *App) RecoveriesByItem(itemID string) ([]domain.Recovery, error) {
	return a.store.ListRecoveriesByItem(itemID)
}

// RecoveryInput is the client-supplied part of a recovery claim.
type RecoveryInput struct {
	ItemID        string `json:"itemId"`
	RecoveredDate string `json:"recoveredDate"`
	Status        string `json:"status"`
}

// CreateRecovery validates the input and inserts a recovery whose claimant
// sub-record comes from the verified caller identity, not the request body.
// ItemID is stored as given; referential validity is not checked.
func (a *App) CreateRecovery(input RecoveryInput, who domain.Identity) (domain.Recovery, error) {
	switch {
	case strings.TrimSpace(input.ItemID) == "":
		return domain.Recovery{}, &ValidationError{Field: "itemId"}
	case strings.TrimSpace(input.RecoveredDate) == "":
		return domain.Recovery{}, &ValidationError{Field: "recoveredDate"}
	case strings.TrimSpace(input.Status) == "":
		return domain.Recovery{}, &ValidationError{Field: "status"}
	}
	rec := domain.Recovery{
		ID:            uuid.NewString(),
		ItemID:        input.ItemID,
		RecoveredDate: input.RecoveredDate,
		Status:        input.Status,
		RecoveredBy: domain.RecoveredBy{
			Name:  who.Name,
			Email: who.Email,
			Image: who.Photo,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.SaveRecovery(rec); err != nil {
		return domain.Recovery{}, fmt.Errorf("save recovery: %w", err)
	}
	return rec, nil
}

// UpdateRecoveryStatus sets the status of a recovery and reports the number
// of modified records. Status values are free text.
func (a *App) UpdateRecoveryStatus(id, status string) (int64, error) {
	return a.store.SetRecoveryStatus(id, status)
}

// AttachItemImage stores an image for an existing item and stamps the item's
// image field with the object key. Returns the key and a presigned GET URL.
func (a *App) AttachItemImage(ctx context.Context, itemID, filename string, r io.Reader, size int64, contentType string) (string, string, error) {
	if a.images == nil {
		return "", "", ErrImageStorageUnavailable
	}
	_, ok, err := a.store.GetItem(itemID)
	if err != nil {
		return "", "", fmt.Errorf("get item: %w", err)
	}
	if !ok {
		return "", "", ErrItemNotFound
	}
	key := "items/" + itemID + path.Ext(filename)
	if err := a.images.Put(ctx, key, r, size, contentType); err != nil {
		return "", "", fmt.Errorf("store image: %w", err)
	}
	if err := a.store.SetItemImage(itemID, key); err != nil {
		return "", "", fmt.Errorf("stamp item image: %w", err)
	}
	url, err := a.images.PresignGet(ctx, key, imageURLExpiry)
	if err != nil {
		return "", "", fmt.Errorf("presign image: %w", err)
	}
	return key, url, nil
}

// ItemImageURL returns a presigned GET URL for the item's stored image.
func (a *App) ItemImageURL(ctx context.Context, itemID string) (string, error) {
	if a.images == nil {
		return "", ErrImageStorageUnavailable
	}
	item, ok, err := a.store.GetItem(itemID)
	if err != nil {
		return "", fmt.Errorf("get item: %w", err)
	}
	if !ok || item.Image == "" {
		return "", ErrItemNotFound
	}
	return a.images.PresignGet(ctx, item.Image, imageURLExpiry)
}

func liftString(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	delete(payload, key)
	return v
}
