package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"motoreg/models"
)

// GormStore keeps each collection in its own table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the tables backing every collection.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Team{},
		&models.Pilot{},
		&models.TeamStaff{},
		&models.RegistrationSettings{},
	)
}

func (s *GormStore) query(ctx context.Context, collection string, filter Filter) *gorm.DB {
	q := s.db.WithContext(ctx).Table(collection)
	if len(filter) > 0 {
		q = q.Where(map[string]interface{}(filter))
	}
	return q
}

func (s *GormStore) Get(ctx context.Context, collection string, filter Filter, dest interface{}) error {
	err := s.query(ctx, collection, filter).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", collection, err)
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, collection string, filter Filter, order *Order, dest interface{}) error {
	q := s.query(ctx, collection, filter)
	if order != nil {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: order.Field}, Desc: order.Desc})
	}
	if err := q.Find(dest).Error; err != nil {
		return fmt.Errorf("list %s: %w", collection, err)
	}
	return nil
}

// Insert maps unique violations to ErrConflict. That needs the gorm.DB to
// be opened with TranslateError.
func (s *GormStore) Insert(ctx context.Context, collection string, record Record) error {
	err := s.db.WithContext(ctx).Table(collection).Create(record).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}

func (s *GormStore) Update(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	res := s.db.WithContext(ctx).Table(collection).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return fmt.Errorf("update %s %s: %w", collection, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	model, err := modelFor(collection)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return fmt.Errorf("delete %s %s: %w", collection, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	var n int64
	if err := s.query(ctx, collection, filter).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func modelFor(collection string) (interface{}, error) {
	switch collection {
	case CollectionTeams:
		return &models.Team{}, nil
	case CollectionPilots:
		return &models.Pilot{}, nil
	case CollectionStaff:
		return &models.TeamStaff{}, nil
	case CollectionSettings:
		return &models.RegistrationSettings{}, nil
	}
	return nil, fmt.Errorf("unknown collection %q", collection)
}
