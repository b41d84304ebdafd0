package store

import (
	"context"

	"gorm.io/gorm"

	"devpair-be/internal/models"
)

// CreateMessage appends a message. Messages are never updated.
func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	return s.do(ctx, func(db *gorm.DB) error {
		m.ID = 0
		return db.Create(m).Error
	})
}

// MessagesByChannel returns messages in ascending created_at order, ties
// broken by insertion order. afterID is a keyset cursor: the page starts
// right after that message in the same order. It must name a message of the
// channel, else ErrNotFound. Zero afterID or limit means no bound.
func (s *Store) MessagesByChannel(ctx context.Context, channelID string, afterID uint, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := s.do(ctx, func(db *gorm.DB) error {
		q := db.Where("channel_id = ?", channelID)
		if afterID > 0 {
			var n int64
			if err := db.Model(&models.Message{}).
				Where("id = ? AND channel_id = ?", afterID, channelID).
				Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return gorm.ErrRecordNotFound
			}
			cursor := db.Model(&models.Message{}).Select("created_at").Where("id = ?", afterID)
			q = q.Where("(created_at > (?) OR (created_at = (?) AND id > ?))", cursor, cursor, afterID)
		}
		q = q.Order("created_at ASC, id ASC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Find(&msgs).Error
	})
	return msgs, err
}
