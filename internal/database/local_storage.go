package database

import (
	"context"

	"github.com/flurbudurbur/degustation/internal/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LocalItem is one entry of a client's local storage.
type LocalItem struct {
	Key   string `gorm:"primaryKey;column:key;size:128"`
	Value string `gorm:"column:value"`
}

func (LocalItem) TableName() string {
	return "local_items"
}

// LocalStorageRepo persists string items the way a browser's localStorage does.
type LocalStorageRepo struct {
	log zerolog.Logger
	db  *DB
}

func NewLocalStorageRepo(log logger.Logger, db *DB) *LocalStorageRepo {
	return &LocalStorageRepo{
		log: log.With().Str("repo", "local_storage").Logger(),
		db:  db,
	}
}

func (r *LocalStorageRepo) GetItem(key string) (string, bool, error) {
	var item LocalItem
	err := r.db.Get().WithContext(context.Background()).
		Where(&LocalItem{Key: key}).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to read local item %s", key)
	}
	return item.Value, true, nil
}

func (r *LocalStorageRepo) SetItem(key, value string) error {
	err := r.db.Get().WithContext(context.Background()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&LocalItem{Key: key, Value: value}).Error
	if err != nil {
		return errors.Wrapf(err, "failed to write local item %s", key)
	}
	return nil
}

func (r *LocalStorageRepo) RemoveItem(key string) error {
	err := r.db.Get().WithContext(context.Background()).
		Where(&LocalItem{Key: key}).
		Delete(&LocalItem{}).Error
	if err != nil {
		return errors.Wrapf(err, "failed to remove local item %s", key)
	}
	return nil
}
