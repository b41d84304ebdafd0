// Package graph maintains the follow graph. Each edge A→B is stored twice,
// as B in A's following set and A in B's followers set; the manager keeps
// both halves in step.
package graph

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"devpair-be/internal/apperr"
	"devpair-be/internal/logger"
	"devpair-be/internal/models"
	"devpair-be/internal/set"
	"devpair-be/internal/store"
)

type Store interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UsersByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	AddToSet(ctx context.Context, name, owner string, members ...uint) error
	Pull(ctx context.Context, name, owner string, members ...uint) error
	Contains(ctx context.Context, name, owner string, member uint) (bool, error)
	Members(ctx context.Context, name, owner string) (set.Set[uint], error)
}

// Notifier receives application events for connected users.
type Notifier interface {
	Notify(userIDs []uint, event string, data any)
}

const EventFollowNew = "follow:new"

type Manager struct {
	store  Store
	notify Notifier
}

func NewManager(s Store, n Notifier) *Manager {
	return &Manager{store: s, notify: n}
}

// Follow adds the edge actor→target. When an earlier call left only one half
// of the edge behind, Follow writes the missing half and succeeds.
func (m *Manager) Follow(ctx context.Context, actor, target uint) error {
	if actor == target {
		return apperr.New(apperr.KindInvalidOperation, "you cannot follow yourself")
	}
	if err := m.ensureUsers(ctx, actor, target); err != nil {
		return err
	}

	following, followedBy, err := m.edge(ctx, actor, target)
	if err != nil {
		return err
	}
	if following && followedBy {
		return apperr.New(apperr.KindAlreadyExists, "you are already following this user")
	}

	wrote := false
	if !following {
		if err := m.store.AddToSet(ctx, models.SetFollowing, key(actor), target); err != nil {
			return apperr.Store("add to following", err)
		}
		wrote = true
	}
	if !followedBy {
		if err := m.store.AddToSet(ctx, models.SetFollowers, key(target), actor); err != nil {
			logger.Log.Warn("follow left half-applied",
				zap.Uint("actor", actor), zap.Uint("target", target), zap.Error(err))
			return apperr.Wrap(apperr.KindPartialFailure, "follow was only partly saved, retry to complete it", err)
		}
	}
	if !wrote {
		logger.Log.Info("completed half-applied follow", zap.Uint("actor", actor), zap.Uint("target", target))
	}

	if m.notify != nil {
		m.notify.Notify([]uint{target}, EventFollowNew, map[string]uint{"follower_id": actor})
	}
	return nil
}

// Unfollow removes the edge actor→target. Either half alone still counts as
// following so a half-applied edge can be cleaned up.
func (m *Manager) Unfollow(ctx context.Context, actor, target uint) error {
	if actor == target {
		return apperr.New(apperr.KindInvalidOperation, "you cannot unfollow yourself")
	}
	if err := m.ensureUsers(ctx, actor, target); err != nil {
		return err
	}

	following, followedBy, err := m.edge(ctx, actor, target)
	if err != nil {
		return err
	}
	if !following && !followedBy {
		return apperr.New(apperr.KindNotFollowing, "you are not following this user")
	}

	if err := m.store.Pull(ctx, models.SetFollowing, key(actor), target); err != nil {
		return apperr.Store("remove from following", err)
	}
	if err := m.store.Pull(ctx, models.SetFollowers, key(target), actor); err != nil {
		logger.Log.Warn("unfollow left half-applied",
			zap.Uint("actor", actor), zap.Uint("target", target), zap.Error(err))
		return apperr.Wrap(apperr.KindPartialFailure, "unfollow was only partly saved, retry to complete it", err)
	}
	return nil
}

// IsFollowing reports whether actor follows target.
func (m *Manager) IsFollowing(ctx context.Context, actor, target uint) (bool, error) {
	ok, err := m.store.Contains(ctx, models.SetFollowing, key(actor), target)
	if err != nil {
		return false, apperr.Store("read following", err)
	}
	return ok, nil
}

type Connection struct {
	ID                 uint   `json:"id"`
	Username           string `json:"username"`
	Name               string `json:"name"`
	ProfilePicture     string `json:"profile_picture"`
	IsFollowedByViewer bool   `json:"is_followed_by_viewer"`
}

type Connections struct {
	Followers []Connection `json:"followers"`
	Following []Connection `json:"following"`
	Mutual    []Connection `json:"mutual_connections"`
}

// ListConnections returns the followers, following and mutual connections of
// username. The viewer flag is computed from the viewer's following set at
// read time.
func (m *Manager) ListConnections(ctx context.Context, username string, viewer uint) (*Connections, error) {
	u, err := m.store.UserByUsername(ctx, username)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load user")
	}

	followers, err := m.store.Members(ctx, models.SetFollowers, key(u.ID))
	if err != nil {
		return nil, apperr.Store("read followers", err)
	}
	following, err := m.store.Members(ctx, models.SetFollowing, key(u.ID))
	if err != nil {
		return nil, apperr.Store("read following", err)
	}
	viewerFollowing := following
	if viewer != u.ID {
		if viewerFollowing, err = m.store.Members(ctx, models.SetFollowing, key(viewer)); err != nil {
			return nil, apperr.Store("read viewer following", err)
		}
	}

	users, err := m.store.UsersByIDs(ctx, followers.Union(following).Sorted())
	if err != nil {
		return nil, apperr.Store("load connections", err)
	}
	byID := make(map[uint]models.User, len(users))
	for _, cu := range users {
		byID[cu.ID] = cu
	}

	build := func(ids set.Set[uint]) []Connection {
		out := make([]Connection, 0, ids.Len())
		for _, id := range ids.Sorted() {
			cu, ok := byID[id]
			if !ok {
				continue
			}
			out = append(out, Connection{
				ID:                 cu.ID,
				Username:           cu.Username,
				Name:               cu.Name,
				ProfilePicture:     cu.ProfilePicture,
				IsFollowedByViewer: viewerFollowing.Contains(cu.ID),
			})
		}
		return out
	}

	return &Connections{
		Followers: build(followers),
		Following: build(following),
		Mutual:    build(followers.Intersect(following)),
	}, nil
}

func (m *Manager) ensureUsers(ctx context.Context, ids ...uint) error {
	for _, id := range ids {
		if _, err := m.store.UserByID(ctx, id); err != nil {
			return notFoundOr(err, "user not found", "load user")
		}
	}
	return nil
}

// edge reports both halves of actor→target.
func (m *Manager) edge(ctx context.Context, actor, target uint) (following, followedBy bool, err error) {
	following, err = m.store.Contains(ctx, models.SetFollowing, key(actor), target)
	if err != nil {
		return false, false, apperr.Store("read following", err)
	}
	followedBy, err = m.store.Contains(ctx, models.SetFollowers, key(target), actor)
	if err != nil {
		return false, false, apperr.Store("read followers", err)
	}
	return following, followedBy, nil
}

func notFoundOr(err error, notFoundMsg, storeMsg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(notFoundMsg)
	}
	return apperr.Store(storeMsg, err)
}

func key(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
