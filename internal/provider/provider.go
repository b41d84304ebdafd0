// Package provider describes the external chat provider that owns channel
// membership and message delivery.
package provider

import (
	"context"
	"errors"
	"strconv"
)

var ErrChannelNotFound = errors.New("provider: channel not found")

// PrivateChannelPrefix starts the id of every one-to-one channel. Group
// channels never use it.
const PrivateChannelPrefix = "dm-"

// ChannelSpec describes a channel to create. Creating a channel whose ID
// already exists returns the existing channel.
type ChannelSpec struct {
	ID        string
	Name      string
	Members   []uint
	CreatedBy uint
}

type ChannelHandle struct {
	ID        string
	Name      string
	Members   []uint
	CreatedBy uint
}

type User struct {
	ID    uint
	Name  string
	Image string
}

//go:generate mockgen -destination=mock/provider.go -package=mock devpair-be/internal/provider Provider

type Provider interface {
	CreateChannel(ctx context.Context, spec ChannelSpec) (*ChannelHandle, error)
	AddMembers(ctx context.Context, channelID string, members []uint) error
	RemoveMembers(ctx context.Context, channelID string, members []uint) error
	// GetChannel returns ErrChannelNotFound for unknown ids.
	GetChannel(ctx context.Context, channelID string) (*ChannelHandle, error)
	UpsertUser(ctx context.Context, u User) error
	IssueAccessToken(ctx context.Context, userID uint) (string, error)
}

// UserKey is the provider-side id of a local user.
func UserKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func UserKeys(ids []uint) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, UserKey(id))
	}
	return out
}

// ParseUserKey reverses UserKey.
func ParseUserKey(key string) (uint, error) {
	v, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
