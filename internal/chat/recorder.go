// Package chat records messages and lists a user's conversations. Message
// delivery is the provider's job; the recorder only keeps history.
package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"devpair-be/internal/apperr"
	"devpair-be/internal/lock"
	"devpair-be/internal/logger"
	"devpair-be/internal/models"
	"devpair-be/internal/provider"
	"devpair-be/internal/store"
)

type Store interface {
	CreateMessage(ctx context.Context, m *models.Message) error
	MessagesByChannel(ctx context.Context, channelID string, afterID uint, limit int) ([]models.Message, error)
	PrivateConversationsForUser(ctx context.Context, userID uint) ([]models.Conversation, error)
	GroupsForMember(ctx context.Context, userID uint) ([]models.GroupChat, error)
	GroupByChannel(ctx context.Context, channelID string) (*models.GroupChat, error)
	EnsurePrivateConversation(ctx context.Context, conv *models.Conversation, participants []uint) error
	ConversationByID(ctx context.Context, id uint) (*models.Conversation, error)
	ConversationByChannel(ctx context.Context, channelID string) (*models.Conversation, error)
	DeleteConversation(ctx context.Context, id uint) error
	UserByID(ctx context.Context, id uint) (*models.User, error)
}

type Notifier interface {
	Notify(userIDs []uint, event string, data any)
}

const EventMessageNew = "message:new"

const (
	maxPageSize    = 200
	defaultTimeout = 5 * time.Second
)

type Recorder struct {
	store    Store
	provider provider.Provider
	locker   lock.Locker
	notify   Notifier
	timeout  time.Duration
}

type Option func(*Recorder)

func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) { r.timeout = d }
}

func WithLocker(l lock.Locker) Option {
	return func(r *Recorder) { r.locker = l }
}

func WithNotifier(n Notifier) Option {
	return func(r *Recorder) { r.notify = n }
}

func NewRecorder(s Store, p provider.Provider, opts ...Option) *Recorder {
	r := &Recorder{
		store:    s,
		provider: p,
		locker:   lock.NewLocal(),
		timeout:  defaultTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

type RecordRequest struct {
	ChannelID         string   `json:"channelId"`
	SenderID          uint     `json:"senderId"`
	Text              string   `json:"text"`
	Attachments       []string `json:"attachments"`
	ProviderMessageID string   `json:"providerMessageId"`
}

// RecordMessage appends a message sent through the provider to the channel
// history. caller is the authenticated user and must be the sender.
func (r *Recorder) RecordMessage(ctx context.Context, req RecordRequest, caller uint) (*models.Message, error) {
	channelID := strings.TrimSpace(req.ChannelID)
	if channelID == "" {
		return nil, apperr.Validation("channelId is required")
	}
	if req.SenderID == 0 {
		return nil, apperr.Validation("senderId is required")
	}
	attachments := make([]string, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		if a = strings.TrimSpace(a); a != "" {
			attachments = append(attachments, a)
		}
	}
	if strings.TrimSpace(req.Text) == "" && len(attachments) == 0 {
		return nil, apperr.Validation("a message needs text or attachments")
	}
	if req.SenderID != caller {
		return nil, apperr.New(apperr.KindForbidden, "messages can only be recorded for yourself")
	}

	msg := &models.Message{
		ChannelID:   channelID,
		SenderID:    req.SenderID,
		Text:        req.Text,
		Attachments: attachments,
	}
	if req.ProviderMessageID != "" {
		id := req.ProviderMessageID
		msg.ProviderMessageID = &id
	}
	if err := r.store.CreateMessage(ctx, msg); err != nil {
		return nil, apperr.Store("save message", err)
	}

	if r.notify != nil {
		recipients, err := r.participants(ctx, channelID)
		if err != nil {
			logger.Log.Warn("resolve message recipients", zap.String("channel_id", channelID), zap.Error(err))
		} else {
			r.notify.Notify(recipients, EventMessageNew, msg)
		}
	}
	return msg, nil
}

// MessagePage is one page of channel history. Next is the cursor of the
// following page, zero when this page is the last.
type MessagePage struct {
	Messages []models.Message `json:"messages"`
	Next     uint             `json:"next,omitempty"`
}

// ListMessages returns a channel's history in send order. after is the id of
// the last message already seen; limit defaults to and is capped at 200.
func (r *Recorder) ListMessages(ctx context.Context, channelID string, after uint, limit int) (*MessagePage, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, apperr.Validation("channelId is required")
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	msgs, err := r.store.MessagesByChannel(ctx, channelID, after, limit+1)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Validation("after does not name a message of this channel")
	}
	if err != nil {
		return nil, apperr.Store("list messages", err)
	}

	page := &MessagePage{Messages: msgs}
	if len(msgs) > limit {
		page.Messages = msgs[:limit]
		page.Next = page.Messages[limit-1].ID
	}
	if page.Messages == nil {
		page.Messages = []models.Message{}
	}
	return page, nil
}

// ListConversationsForUser returns the user's private conversations followed
// by one conversation per group they belong to.
func (r *Recorder) ListConversationsForUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	private, err := r.store.PrivateConversationsForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Store("list conversations", err)
	}
	groups, err := r.store.GroupsForMember(ctx, userID)
	if err != nil {
		return nil, apperr.Store("list groups", err)
	}

	out := make([]models.Conversation, 0, len(private)+len(groups))
	out = append(out, private...)
	for _, g := range groups {
		out = append(out, models.Conversation{
			ChannelID:      g.ChannelID,
			Type:           models.ConversationGroup,
			Name:           g.Name,
			AdminID:        g.OwnerID,
			CreatedAt:      g.CreatedAt,
			UpdatedAt:      g.UpdatedAt,
			ParticipantIDs: g.Members,
		})
	}
	return out, nil
}

// PrivateChannelID names the provider channel of a pair of users. The id is
// the same whichever side opens it.
func PrivateChannelID(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%s%d-%d", provider.PrivateChannelPrefix, a, b)
}

// OpenPrivate returns the private conversation between actor and other,
// creating the provider channel first and then the local record.
func (r *Recorder) OpenPrivate(ctx context.Context, actor, other uint) (*models.Conversation, error) {
	if other == 0 {
		return nil, apperr.Validation("userId is required")
	}
	if actor == other {
		return nil, apperr.New(apperr.KindInvalidOperation, "cannot open a conversation with yourself")
	}
	if _, err := r.store.UserByID(ctx, other); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Store("load user", err)
	}

	channelID := PrivateChannelID(actor, other)
	unlock, err := r.locker.Lock(ctx, channelID)
	if err != nil {
		return nil, apperr.Store("lock channel", err)
	}
	defer unlock()

	participants := []uint{min(actor, other), max(actor, other)}
	err = r.callProvider(ctx, func(ctx context.Context) error {
		_, err := r.provider.CreateChannel(ctx, provider.ChannelSpec{
			ID:        channelID,
			Members:   participants,
			CreatedBy: actor,
		})
		return err
	})
	if err != nil {
		logger.Log.Warn("create private channel failed", zap.String("channel_id", channelID), zap.Error(err))
		return nil, apperr.Upstream("could not create the conversation channel", err)
	}

	conv := &models.Conversation{ChannelID: channelID}
	if err := r.store.EnsurePrivateConversation(ctx, conv, participants); err != nil {
		logger.Log.Error("persist private conversation", zap.String("channel_id", channelID), zap.Error(err))
		return nil, apperr.Partial(channelID, "conversation channel was created but not saved, retry", err)
	}
	return conv, nil
}

// DeleteConversation deletes a private conversation and its messages.
// Only participants may delete it.
func (r *Recorder) DeleteConversation(ctx context.Context, id, actor uint) error {
	conv, err := r.store.ConversationByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("conversation not found")
	}
	if err != nil {
		return apperr.Store("load conversation", err)
	}
	if !slices.Contains(conv.ParticipantIDs, actor) {
		return apperr.New(apperr.KindForbidden, "only participants can delete a conversation")
	}
	if err := r.store.DeleteConversation(ctx, id); err != nil {
		return apperr.Store("delete conversation", err)
	}
	logger.Log.Info("conversation deleted", zap.Uint("id", id), zap.String("channel_id", conv.ChannelID))
	return nil
}

// AccessToken registers the user with the provider and returns a token the
// client uses to connect to it.
func (r *Recorder) AccessToken(ctx context.Context, userID uint) (string, error) {
	u, err := r.store.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", apperr.NotFound("user not found")
	}
	if err != nil {
		return "", apperr.Store("load user", err)
	}

	var token string
	err = r.callProvider(ctx, func(ctx context.Context) error {
		if err := r.provider.UpsertUser(ctx, provider.User{ID: u.ID, Name: u.Name, Image: u.ProfilePicture}); err != nil {
			return err
		}
		var err error
		token, err = r.provider.IssueAccessToken(ctx, u.ID)
		return err
	})
	if err != nil {
		return "", apperr.Upstream("could not issue chat token", err)
	}
	return token, nil
}

func (r *Recorder) participants(ctx context.Context, channelID string) ([]uint, error) {
	g, err := r.store.GroupByChannel(ctx, channelID)
	if err == nil {
		return g.Members, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	conv, err := r.store.ConversationByChannel(ctx, channelID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return conv.ParticipantIDs, nil
}

func (r *Recorder) callProvider(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("provider call timed out after %s: %w", r.timeout, err)
	}
	return err
}
