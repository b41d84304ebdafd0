package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"devpair-be/internal/models"
	"devpair-be/internal/set"
)

// AddToSet adds members to the named set of owner. Members already present
// are left alone.
func (s *Store) AddToSet(ctx context.Context, name, owner string, members ...uint) error {
	if len(members) == 0 {
		return nil
	}
	return s.do(ctx, func(db *gorm.DB) error {
		return addToSet(db, name, owner, members)
	})
}

// Pull removes members from the named set of owner. Absent members are a
// no-op.
func (s *Store) Pull(ctx context.Context, name, owner string, members ...uint) error {
	if len(members) == 0 {
		return nil
	}
	return s.do(ctx, func(db *gorm.DB) error {
		return pull(db, name, owner, members)
	})
}

func (s *Store) Contains(ctx context.Context, name, owner string, member uint) (bool, error) {
	var n int64
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Model(&models.SetMember{}).
			Where("set_name = ? AND owner_key = ? AND member_id = ?", name, owner, member).
			Count(&n).Error
	})
	return n > 0, err
}

func (s *Store) Members(ctx context.Context, name, owner string) (set.Set[uint], error) {
	var ids []uint
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Model(&models.SetMember{}).
			Where("set_name = ? AND owner_key = ?", name, owner).
			Pluck("member_id", &ids).Error
	})
	if err != nil {
		return nil, err
	}
	return set.Of(ids...), nil
}

// OwnersContaining returns the keys of every owner whose named set contains
// member.
func (s *Store) OwnersContaining(ctx context.Context, name string, member uint) ([]string, error) {
	var keys []string
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Model(&models.SetMember{}).
			Where("set_name = ? AND member_id = ?", name, member).
			Order("owner_key").
			Pluck("owner_key", &keys).Error
	})
	return keys, err
}

func addToSet(db *gorm.DB, name, owner string, members []uint) error {
	if len(members) == 0 {
		return nil
	}
	rows := make([]models.SetMember, 0, len(members))
	for _, id := range set.Of(members...).Sorted() {
		rows = append(rows, models.SetMember{SetName: name, OwnerKey: owner, MemberID: id})
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func pull(db *gorm.DB, name, owner string, members []uint) error {
	if len(members) == 0 {
		return nil
	}
	return db.Where("set_name = ? AND owner_key = ? AND member_id IN ?", name, owner, members).
		Delete(&models.SetMember{}).Error
}

// replaceSet makes the named set equal to members. It only deletes and
// inserts the difference so untouched rows keep their timestamps.
func replaceSet(db *gorm.DB, name, owner string, members []uint) error {
	q := db.Where("set_name = ? AND owner_key = ?", name, owner)
	if len(members) > 0 {
		q = q.Where("member_id NOT IN ?", members)
	}
	if err := q.Delete(&models.SetMember{}).Error; err != nil {
		return err
	}
	return addToSet(db, name, owner, members)
}
