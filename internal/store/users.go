package store

import (
	"context"

	"gorm.io/gorm"

	"devpair-be/internal/models"
)

// ErrDuplicate is returned when a unique column already holds the value.
var ErrDuplicate = gorm.ErrDuplicatedKey

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return s.do(ctx, func(db *gorm.DB) error {
		return db.Create(u).Error
	})
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.First(&u, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Where("username = ?", username).First(&u).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Where("email = ?", email).First(&u).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UsersByIDs loads the given users ordered by id. Unknown ids are skipped.
func (s *Store) UsersByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Where("id IN ?", ids).Order("id").Find(&users).Error
	})
	return users, err
}
