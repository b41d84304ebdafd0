package models

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Name           string    `gorm:"size:120;not null" json:"name"`
	Email          string    `gorm:"size:190;uniqueIndex;not null" json:"email"`
	PasswordHash   string    `gorm:"size:255;not null" json:"-"`
	ProfilePicture string    `gorm:"size:512" json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Set names stored in set_members.
const (
	SetFollowers    = "user.followers"
	SetFollowing    = "user.following"
	SetGroupMembers = "group.members"
)

// SetMember is one element of a named set owned by a document. Follower and
// following sets are keyed by user id, group member sets by channel id.
type SetMember struct {
	SetName   string    `gorm:"primaryKey;size:32"`
	OwnerKey  string    `gorm:"primaryKey;size:128;index"`
	MemberID  uint      `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}

type GroupChat struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ChannelID   string    `gorm:"size:128;uniqueIndex;not null" json:"channel_id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	OwnerID     uint      `gorm:"index;not null" json:"owner_id"`
	Description string    `gorm:"size:512" json:"description,omitempty"`
	Image       string    `gorm:"size:512" json:"image,omitempty"`
	Version     uint64    `gorm:"not null;default:0" json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Members []uint `gorm:"-" json:"members"`
}

const (
	ConversationPrivate = "private"
	ConversationGroup   = "group"
)

type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChannelID string    `gorm:"size:128;uniqueIndex;not null" json:"channel_id"`
	Type      string    `gorm:"size:20;not null" json:"type"` // "private"
	Name      string    `gorm:"size:120" json:"name,omitempty"`
	AdminID   uint      `json:"admin_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Participants []ConversationParticipant `json:"-"`

	ParticipantIDs []uint `gorm:"-" json:"participants"`
}

type ConversationParticipant struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"uniqueIndex:ux_conv_user;not null" json:"conversation_id"`
	UserID         uint      `gorm:"uniqueIndex:ux_conv_user;index;not null" json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type Message struct {
	ID                uint                        `gorm:"primaryKey" json:"id"`
	ChannelID         string                      `gorm:"size:128;index:ix_channel_created,priority:1;not null" json:"channel_id"`
	SenderID          uint                        `gorm:"index;not null" json:"sender_id"`
	Text              string                      `gorm:"type:text" json:"text"`
	Attachments       datatypes.JSONSlice[string] `json:"attachments"`
	ProviderMessageID *string                     `gorm:"size:128" json:"provider_message_id,omitempty"`
	CreatedAt         time.Time                   `gorm:"index:ix_channel_created,priority:2" json:"created_at"`
}

// All returns every model the store migrates.
func All() []any {
	return []any{
		&User{},
		&SetMember{},
		&GroupChat{},
		&Conversation{},
		&ConversationParticipant{},
		&Message{},
	}
}
