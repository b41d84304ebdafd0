// Package groups keeps group chats in the relationship store and channels at
// the chat provider in step.
//
// Every membership change goes remote first, local second. A remote failure
// leaves the store untouched (retry from scratch); a local failure after a
// remote success is reported as a partial failure and queued for
// reconciliation, which copies the provider's membership back (the provider
// decides who actually receives messages).
package groups

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"devpair-be/internal/apperr"
	"devpair-be/internal/lock"
	"devpair-be/internal/logger"
	"devpair-be/internal/models"
	"devpair-be/internal/provider"
	"devpair-be/internal/queue"
	"devpair-be/internal/set"
	"devpair-be/internal/store"
)

type Store interface {
	UpsertGroup(ctx context.Context, g *models.GroupChat) error
	GroupByChannel(ctx context.Context, channelID string) (*models.GroupChat, error)
	AddGroupMembers(ctx context.Context, channelID string, members []uint) error
	RemoveGroupMembers(ctx context.Context, channelID string, members []uint) error
	ReplaceGroupMembers(ctx context.Context, channelID string, members []uint) error
	GroupsForMember(ctx context.Context, userID uint) ([]models.GroupChat, error)
	ChannelIDs(ctx context.Context) ([]string, error)
	ConversationByChannel(ctx context.Context, channelID string) (*models.Conversation, error)
}

// Enqueuer hands channels to the reconciliation worker.
type Enqueuer interface {
	Publish(ctx context.Context, job queue.Job) error
}

type Notifier interface {
	Notify(userIDs []uint, event string, data any)
}

const (
	EventGroupCreated = "group:created"
	EventMembersAdded = "group:members_added"
	EventMembersGone  = "group:members_removed"
)

const (
	minMembers      = 2
	maxChannelIDLen = 64
	defaultTimeout  = 5 * time.Second
	enqueueTimeout  = 2 * time.Second
)

var channelIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)

var errForeignChannel = apperr.New(apperr.KindAlreadyExists, "channelId already names a group owned by another user")

type Synchronizer struct {
	store    Store
	provider provider.Provider
	locker   lock.Locker
	jobs     Enqueuer
	notify   Notifier
	timeout  time.Duration
}

type Option func(*Synchronizer)

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) Option {
	return func(s *Synchronizer) { s.timeout = d }
}

func WithLocker(l lock.Locker) Option {
	return func(s *Synchronizer) { s.locker = l }
}

func WithQueue(q Enqueuer) Option {
	return func(s *Synchronizer) { s.jobs = q }
}

func WithNotifier(n Notifier) Option {
	return func(s *Synchronizer) { s.notify = n }
}

func New(s Store, p provider.Provider, opts ...Option) *Synchronizer {
	sy := &Synchronizer{
		store:    s,
		provider: p,
		locker:   lock.NewLocal(),
		timeout:  defaultTimeout,
	}
	for _, o := range opts {
		o(sy)
	}
	return sy
}

type CreateRequest struct {
	Name      string
	MemberIDs []uint
	Creator   uint
	// ChannelID is optional. When empty it is derived from IdempotencyKey,
	// or from the request itself, so retries hit the same channel.
	ChannelID      string
	IdempotencyKey string
}

type CreateResult struct {
	Group *models.GroupChat `json:"group"`
	Token string            `json:"token"`
}

// CreateGroup creates the provider channel, then persists the group with the
// membership the provider reports. A retry with the same channel id replays
// the persistence; a channel id that already names another user's group is
// refused.
func (s *Synchronizer) CreateGroup(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("group name is required")
	}
	if req.Creator == 0 {
		return nil, apperr.Validation("creator is required")
	}
	members, err := memberSet(req.MemberIDs)
	if err != nil {
		return nil, err
	}
	if members.Len() < minMembers {
		return nil, apperr.Validation(fmt.Sprintf("a group needs at least %d distinct members", minMembers))
	}
	members.Add(req.Creator)

	channelID := req.ChannelID
	if channelID == "" {
		channelID = ChannelIDFor(req.Creator, name, members, req.IdempotencyKey)
	}
	if err := validateChannelID(channelID); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, channelID)
	if err != nil {
		return nil, apperr.Store("lock channel", err)
	}
	defer unlock()

	existing, err := s.store.GroupByChannel(ctx, channelID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		existing = nil
	case err != nil:
		return nil, apperr.Store("load group", err)
	case existing.OwnerID != req.Creator:
		return nil, errForeignChannel
	}

	var handle *provider.ChannelHandle
	err = s.callProvider(ctx, func(ctx context.Context) error {
		var err error
		handle, err = s.provider.CreateChannel(ctx, provider.ChannelSpec{
			ID:        channelID,
			Name:      name,
			Members:   members.Sorted(),
			CreatedBy: req.Creator,
		})
		return err
	})
	if err != nil {
		logger.Log.Warn("create channel failed", zap.String("channel_id", channelID), zap.Error(err))
		return nil, apperr.Upstream("could not create the group channel", err)
	}
	if handle.CreatedBy != 0 && handle.CreatedBy != req.Creator {
		return nil, errForeignChannel
	}

	// An existing channel comes back unchanged, so its members win over the
	// requested ones.
	g := &models.GroupChat{ChannelID: channelID, Name: name, OwnerID: req.Creator, Members: set.Of(handle.Members...).Sorted()}
	if err := s.store.UpsertGroup(ctx, g); err != nil {
		if errors.Is(err, store.ErrOwnerConflict) {
			return nil, errForeignChannel
		}
		logger.Log.Error("persist group after channel creation", zap.String("channel_id", channelID), zap.Error(err))
		s.enqueue(channelID, "create_group")
		return nil, apperr.Partial(channelID, "group channel was created but not saved, retry with the same channel id", err)
	}

	stored, err := s.store.GroupByChannel(ctx, channelID)
	if err != nil {
		return nil, apperr.Store("load group", err)
	}

	// The group is already saved; callers without a token fetch one later.
	var token string
	err = s.callProvider(ctx, func(ctx context.Context) error {
		var err error
		token, err = s.provider.IssueAccessToken(ctx, req.Creator)
		return err
	})
	if err != nil {
		logger.Log.Warn("issue chat token after group creation",
			zap.String("channel_id", channelID),
			zap.Uint("user_id", req.Creator),
			zap.Error(err),
		)
	}

	if existing == nil {
		logger.Log.Info("group created",
			zap.String("channel_id", channelID),
			zap.Uint("owner", req.Creator),
			zap.Int("members", len(stored.Members)),
		)
		s.emit(set.Of(stored.Members...).Diff(set.Of(req.Creator)).Sorted(), EventGroupCreated, stored)
	}

	return &CreateResult{Group: stored, Token: token}, nil
}

// AddMembers adds memberIDs to the group. actor must already be a member.
func (s *Synchronizer) AddMembers(ctx context.Context, channelID string, memberIDs []uint, actor uint) (*models.GroupChat, error) {
	ids, err := s.validateMutation(channelID, memberIDs)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, channelID)
	if err != nil {
		return nil, apperr.Store("lock channel", err)
	}
	defer unlock()

	g, err := s.loadGroup(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !set.Of(g.Members...).Contains(actor) {
		return nil, apperr.New(apperr.KindForbidden, "only group members can add members")
	}

	err = s.callProvider(ctx, func(ctx context.Context) error {
		return s.provider.AddMembers(ctx, channelID, ids)
	})
	if err != nil {
		logger.Log.Warn("add members at provider failed", zap.String("channel_id", channelID), zap.Error(err))
		return nil, apperr.Upstream("could not add members to the group channel", err)
	}

	if err := s.store.AddGroupMembers(ctx, channelID, ids); err != nil {
		logger.Log.Error("persist added members", zap.String("channel_id", channelID), zap.Error(err))
		s.enqueue(channelID, "add_members")
		return nil, apperr.Partial(channelID, "members were added to the channel but not saved", err)
	}

	updated, err := s.store.GroupByChannel(ctx, channelID)
	if err != nil {
		return nil, apperr.Store("load group", err)
	}
	s.emit(updated.Members, EventMembersAdded, map[string]any{"channel_id": channelID, "member_ids": ids})
	return updated, nil
}

// RemoveMembers removes memberIDs from the group. The owner may remove
// anyone but themselves; other members may only remove themselves.
// Removing a non-member is a no-op.
func (s *Synchronizer) RemoveMembers(ctx context.Context, channelID string, memberIDs []uint, actor uint) (*models.GroupChat, error) {
	ids, err := s.validateMutation(channelID, memberIDs)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, channelID)
	if err != nil {
		return nil, apperr.Store("lock channel", err)
	}
	defer unlock()

	g, err := s.loadGroup(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if set.Of(ids...).Contains(g.OwnerID) {
		return nil, apperr.New(apperr.KindInvalidOperation, "the group owner cannot be removed")
	}
	if actor != g.OwnerID && !(len(ids) == 1 && ids[0] == actor) {
		return nil, apperr.New(apperr.KindForbidden, "only the group owner can remove other members")
	}

	err = s.callProvider(ctx, func(ctx context.Context) error {
		return s.provider.RemoveMembers(ctx, channelID, ids)
	})
	if err != nil {
		logger.Log.Warn("remove members at provider failed", zap.String("channel_id", channelID), zap.Error(err))
		return nil, apperr.Upstream("could not remove members from the group channel", err)
	}

	if err := s.store.RemoveGroupMembers(ctx, channelID, ids); err != nil {
		logger.Log.Error("persist removed members", zap.String("channel_id", channelID), zap.Error(err))
		s.enqueue(channelID, "remove_members")
		return nil, apperr.Partial(channelID, "members were removed from the channel but not saved", err)
	}

	updated, err := s.store.GroupByChannel(ctx, channelID)
	if err != nil {
		return nil, apperr.Store("load group", err)
	}
	s.emit(set.Of(updated.Members...).Union(set.Of(ids...)).Sorted(), EventMembersGone,
		map[string]any{"channel_id": channelID, "member_ids": ids})
	return updated, nil
}

// ListUserGroups reads only the local store.
func (s *Synchronizer) ListUserGroups(ctx context.Context, userID uint) ([]models.GroupChat, error) {
	groups, err := s.store.GroupsForMember(ctx, userID)
	if err != nil {
		return nil, apperr.Store("list groups", err)
	}
	if groups == nil {
		groups = []models.GroupChat{}
	}
	return groups, nil
}

func (s *Synchronizer) validateMutation(channelID string, memberIDs []uint) ([]uint, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, apperr.Validation("channelId is required")
	}
	if len(memberIDs) == 0 {
		return nil, apperr.Validation("memberIds must not be empty")
	}
	ids, err := memberSet(memberIDs)
	if err != nil {
		return nil, err
	}
	return ids.Sorted(), nil
}

func (s *Synchronizer) loadGroup(ctx context.Context, channelID string) (*models.GroupChat, error) {
	g, err := s.store.GroupByChannel(ctx, channelID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("group not found")
	}
	if err != nil {
		return nil, apperr.Store("load group", err)
	}
	return g, nil
}

// callProvider runs fn under the provider timeout. A timeout is a failure.
func (s *Synchronizer) callProvider(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("provider call timed out after %s: %w", s.timeout, err)
	}
	return err
}

// enqueue schedules reconciliation. It runs after the request may have been
// cancelled, so it does not use the request context.
func (s *Synchronizer) enqueue(channelID, reason string) {
	if s.jobs == nil {
		logger.Log.Warn("no reconcile queue, channel left for the periodic sweep", zap.String("channel_id", channelID))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	if err := s.jobs.Publish(ctx, queue.Job{ChannelID: channelID, Reason: reason}); err != nil {
		logger.Log.Error("enqueue reconcile job", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (s *Synchronizer) emit(userIDs []uint, event string, data any) {
	if s.notify == nil || len(userIDs) == 0 {
		return
	}
	s.notify.Notify(userIDs, event, data)
}

func memberSet(ids []uint) (set.Set[uint], error) {
	out := set.Of(ids...)
	if out.Contains(0) {
		return nil, apperr.Validation("member ids must be positive")
	}
	return out, nil
}

func validateChannelID(id string) error {
	if len(id) > maxChannelIDLen || !channelIDPattern.MatchString(id) {
		return apperr.Validation("channelId may only contain letters, digits, '-' and '_' (max 64)")
	}
	if strings.HasPrefix(id, provider.PrivateChannelPrefix) {
		return apperr.Validation("channelId prefix is reserved for private conversations")
	}
	return nil
}
