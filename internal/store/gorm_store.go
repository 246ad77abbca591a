package store

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"findlost/internal/domain"
)

// GormStore implements Store using GORM + Postgres. The underlying *gorm.DB
// pool is safe for concurrent use and is shared for the process lifetime.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&ItemModel{}, &RecoveryModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveItem inserts an item record.
func (s *GormStore) SaveItem(item domain.Item) error {
	model, err := itemToModel(item)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

// ListItems returns items ordered by creation time, optionally filtered by
// owner email. An empty email returns everything.
func (s *GormStore) ListItems(email string) ([]domain.Item, error) {
	var models []ItemModel
	tx := s.db.Order("created_at ASC")
	if email != "" {
		tx = tx.Where("email = ?", email)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Item, 0, len(models))
	for _, m := range models {
		item, err := itemFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, item)
	}
	return res, nil
}

// GetItem retrieves a single item.
func (s *GormStore) GetItem(id string) (domain.Item, bool, error) {
	var model ItemModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Item{}, false, nil
		}
		return domain.Item{}, false, err
	}
	item, err := itemFromModel(model)
	if err != nil {
		return domain.Item{}, false, err
	}
	return item, true, nil
}

// SetItemImage stamps the image field of an item.
func (s *GormStore) SetItemImage(id, image string) error {
	return s.db.Model(&ItemModel{}).
		Where("id = ?", id).
		Update("image", image).Error
}

// SaveRecovery inserts a recovery record.
func (s *GormStore) SaveRecovery(rec domain.Recovery) error {
	model := recoveryToModel(rec)
	return s.db.Create(&model).Error
}

// ListRecoveriesByClaimant returns recoveries filed by the given email.
func (s *GormStore) ListRecoveriesByClaimant(email string) ([]domain.Recovery, error) {
	return s.listRecoveries("recovered_by_email = ?", email)
}

// ListRecoveriesByItem returns recoveries referencing the given item.
func (s *GormStore) ListRecoveriesByItem(itemID string) ([]domain.Recovery, error) {
	return s.listRecoveries("item_id = ?", itemID)
}

func (s *GormStore) listRecoveries(cond string, arg any) ([]domain.Recovery, error) {
	var models []RecoveryModel
	if err := s.db.Order("created_at ASC").Where(cond, arg).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Recovery, 0, len(models))
	for _, m := range models {
		res = append(res, recoveryFromModel(m))
	}
	return res, nil
}

// CountRecoveriesForItem counts recoveries whose item_id matches.
func (s *GormStore) CountRecoveriesForItem(itemID string) (int64, error) {
	var count int64
	if err := s.db.Model(&RecoveryModel{}).Where("item_id = ?", itemID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SetRecoveryStatus updates the status field and reports how many rows changed.
func (s *GormStore) SetRecoveryStatus(id, status string) (int64, error) {
	tx := s.db.Model(&RecoveryModel{}).
		Where("id = ?", id).
		Update("status", status)
	if tx.Error != nil {
		return 0, tx.Error
	}
	return tx.RowsAffected, nil
}

func itemToModel(item domain.Item) (ItemModel, error) {
	model := ItemModel{
		ID:        item.ID,
		Email:     item.Email,
		Name:      item.Name,
		Category:  item.Category,
		Image:     item.Image,
		Status:    item.Status,
		CreatedAt: item.CreatedAt,
	}
	if len(item.Attributes) > 0 {
		raw, err := json.Marshal(item.Attributes)
		if err != nil {
			return ItemModel{}, fmt.Errorf("marshal attributes: %w", err)
		}
		model.Attributes = datatypes.JSON(raw)
	}
	return model, nil
}

func itemFromModel(m ItemModel) (domain.Item, error) {
	item := domain.Item{
		ID:        m.ID,
		Email:     m.Email,
		Name:      m.Name,
		Category:  m.Category,
		Image:     m.Image,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
	if len(m.Attributes) > 0 {
		if err := json.Unmarshal(m.Attributes, &item.Attributes); err != nil {
			return domain.Item{}, fmt.Errorf("unmarshal attributes: %w", err)
		}
	}
	return item, nil
}

func recoveryToModel(rec domain.Recovery) RecoveryModel {
	return RecoveryModel{
		ID:               rec.ID,
		ItemID:           rec.ItemID,
		RecoveredDate:    rec.RecoveredDate,
		Status:           rec.Status,
		RecoveredByName:  rec.RecoveredBy.Name,
		RecoveredByEmail: rec.RecoveredBy.Email,
		RecoveredByImage: rec.RecoveredBy.Image,
		CreatedAt:        rec.CreatedAt,
	}
}

func recoveryFromModel(m RecoveryModel) domain.Recovery {
	return domain.Recovery{
		ID:            m.ID,
		ItemID:        m.ItemID,
		RecoveredDate: m.RecoveredDate,
		Status:        m.Status,
		RecoveredBy: domain.RecoveredBy{
			Name:  m.RecoveredByName,
			Email: m.RecoveredByEmail,
			Image: m.RecoveredByImage,
		},
		CreatedAt: m.CreatedAt,
	}
}
