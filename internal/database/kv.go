package database

import (
	"context"
	"time"

	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry is one row of the kv_entries table.
type KVEntry struct {
	Key       string    `gorm:"primaryKey;column:key;size:128"`
	Value     []byte    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

// KVRepo is a domain.KVStore over a SQL table.
type KVRepo struct {
	log zerolog.Logger
	db  *DB
}

var _ domain.KVStore = (*KVRepo)(nil)

func NewKVRepo(log logger.Logger, db *DB) *KVRepo {
	return &KVRepo{
		log: log.With().Str("repo", "kv").Logger(),
		db:  db,
	}
}

func (r *KVRepo) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry KVEntry
	err := r.db.Get().WithContext(ctx).
		Where(&KVEntry{Key: key}).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get kv entry")
	}
	return entry.Value, true, nil
}

func (r *KVRepo) Set(ctx context.Context, key string, value []byte) error {
	entry := KVEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}

	err := r.db.Get().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return errors.Wrap(err, "failed to upsert kv entry")
	}

	r.log.Trace().Str("key", key).Msg("kv entry stored")
	return nil
}

func (r *KVRepo) Ping(context.Context) error {
	return r.db.Ping()
}

func (r *KVRepo) Close() error {
	return r.db.Close()
}
