package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"devpair-be/internal/models"
)

// EnsurePrivateConversation creates the private conversation keyed by
// conv.ChannelID with the given participants, or loads it if it already
// exists. conv is filled with the stored row.
func (s *Store) EnsurePrivateConversation(ctx context.Context, conv *models.Conversation, participants []uint) error {
	return s.do(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			row := models.Conversation{ChannelID: conv.ChannelID, Type: models.ConversationPrivate}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
			if err := tx.Where("channel_id = ?", conv.ChannelID).First(conv).Error; err != nil {
				return err
			}

			parts := make([]models.ConversationParticipant, 0, len(participants))
			for _, uid := range participants {
				parts = append(parts, models.ConversationParticipant{ConversationID: conv.ID, UserID: uid})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&parts).Error; err != nil {
				return err
			}
			conv.ParticipantIDs = participants
			return nil
		})
	})
}

func (s *Store) ConversationByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Preload("Participants").First(&conv, id).Error
	})
	if err != nil {
		return nil, err
	}
	fillParticipantIDs(&conv)
	return &conv, nil
}

func (s *Store) ConversationByChannel(ctx context.Context, channelID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Preload("Participants").Where("channel_id = ?", channelID).First(&conv).Error
	})
	if err != nil {
		return nil, err
	}
	fillParticipantIDs(&conv)
	return &conv, nil
}

// PrivateConversationsForUser returns the private conversations userID takes
// part in, most recently updated first.
func (s *Store) PrivateConversationsForUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := s.do(ctx, func(db *gorm.DB) error {
		sub := db.Model(&models.ConversationParticipant{}).
			Select("conversation_id").
			Where("user_id = ?", userID)
		return db.Preload("Participants").
			Where("id IN (?)", sub).
			Order("updated_at desc, id desc").
			Find(&convs).Error
	})
	if err != nil {
		return nil, err
	}
	for i := range convs {
		fillParticipantIDs(&convs[i])
	}
	return convs, nil
}

// DeleteConversation removes a private conversation, its participants and
// every message recorded on its channel.
func (s *Store) DeleteConversation(ctx context.Context, id uint) error {
	return s.do(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var conv models.Conversation
			if err := tx.First(&conv, id).Error; err != nil {
				return err
			}
			if err := tx.Where("channel_id = ?", conv.ChannelID).Delete(&models.Message{}).Error; err != nil {
				return err
			}
			if err := tx.Where("conversation_id = ?", conv.ID).Delete(&models.ConversationParticipant{}).Error; err != nil {
				return err
			}
			return tx.Delete(&conv).Error
		})
	})
}

func fillParticipantIDs(conv *models.Conversation) {
	conv.ParticipantIDs = make([]uint, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		conv.ParticipantIDs = append(conv.ParticipantIDs, p.UserID)
	}
}
