package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"devpair-be/internal/models"
	"devpair-be/internal/set"
)

// UpsertGroup inserts the group keyed by channel id and makes its member set
// equal to g.Members, in one transaction. An existing row keeps its name and
// owner; if it belongs to another owner nothing is written and
// ErrOwnerConflict is returned. Replaying it with the same input is a no-op.
func (s *Store) UpsertGroup(ctx context.Context, g *models.GroupChat) error {
	return s.do(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			row := models.GroupChat{
				ChannelID:   g.ChannelID,
				Name:        g.Name,
				OwnerID:     g.OwnerID,
				Description: g.Description,
				Image:       g.Image,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "channel_id"}},
				DoNothing: true,
			}).Create(&row).Error
			if err != nil {
				return err
			}

			var current models.GroupChat
			if err := tx.Select("owner_id").Where("channel_id = ?", g.ChannelID).Take(&current).Error; err != nil {
				return err
			}
			if current.OwnerID != g.OwnerID {
				return ErrOwnerConflict
			}
			return replaceSet(tx, models.SetGroupMembers, g.ChannelID, g.Members)
		})
	})
}

// GroupByChannel loads a group with its current member set.
func (s *Store) GroupByChannel(ctx context.Context, channelID string) (*models.GroupChat, error) {
	var g models.GroupChat
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Where("channel_id = ?", channelID).First(&g).Error
	})
	if err != nil {
		return nil, err
	}
	members, err := s.Members(ctx, models.SetGroupMembers, channelID)
	if err != nil {
		return nil, err
	}
	g.Members = members.Sorted()
	return &g, nil
}

// AddGroupMembers adds members to the group's set and bumps its version.
func (s *Store) AddGroupMembers(ctx context.Context, channelID string, members []uint) error {
	return s.mutateGroup(ctx, channelID, func(tx *gorm.DB) error {
		return addToSet(tx, models.SetGroupMembers, channelID, members)
	})
}

// RemoveGroupMembers pulls members from the group's set and bumps its
// version.
func (s *Store) RemoveGroupMembers(ctx context.Context, channelID string, members []uint) error {
	return s.mutateGroup(ctx, channelID, func(tx *gorm.DB) error {
		return pull(tx, models.SetGroupMembers, channelID, members)
	})
}

// ReplaceGroupMembers overwrites the group's member set. Only reconciliation
// uses it, under the channel lock.
func (s *Store) ReplaceGroupMembers(ctx context.Context, channelID string, members []uint) error {
	return s.mutateGroup(ctx, channelID, func(tx *gorm.DB) error {
		return replaceSet(tx, models.SetGroupMembers, channelID, members)
	})
}

func (s *Store) mutateGroup(ctx context.Context, channelID string, fn func(tx *gorm.DB) error) error {
	return s.do(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Model(&models.GroupChat{}).
				Where("channel_id = ?", channelID).
				UpdateColumn("version", gorm.Expr("version + ?", 1)).Error
		})
	})
}

// GroupsForMember returns every group whose member set contains userID,
// newest first. Membership is resolved through the set index, not by
// scanning groups.
func (s *Store) GroupsForMember(ctx context.Context, userID uint) ([]models.GroupChat, error) {
	keys, err := s.OwnersContaining(ctx, models.SetGroupMembers, userID)
	if err != nil || len(keys) == 0 {
		return nil, err
	}
	return s.groupsByChannel(ctx, keys)
}

func (s *Store) groupsByChannel(ctx context.Context, channelIDs []string) ([]models.GroupChat, error) {
	var groups []models.GroupChat
	var rows []models.SetMember
	err := s.do(ctx, func(db *gorm.DB) error {
		if err := db.Where("channel_id IN ?", channelIDs).
			Order("created_at desc, id desc").
			Find(&groups).Error; err != nil {
			return err
		}
		return db.Where("set_name = ? AND owner_key IN ?", models.SetGroupMembers, channelIDs).
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	byChannel := map[string]set.Set[uint]{}
	for _, r := range rows {
		if byChannel[r.OwnerKey] == nil {
			byChannel[r.OwnerKey] = set.Set[uint]{}
		}
		byChannel[r.OwnerKey].Add(r.MemberID)
	}
	for i := range groups {
		groups[i].Members = byChannel[groups[i].ChannelID].Sorted()
	}
	return groups, nil
}

// ChannelIDs lists every group channel id, for periodic reconciliation.
func (s *Store) ChannelIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Model(&models.GroupChat{}).Order("id").Pluck("channel_id", &ids).Error
	})
	return ids, err
}
