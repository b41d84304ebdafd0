package groups

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"devpair-be/internal/apperr"
	"devpair-be/internal/logger"
	"devpair-be/internal/models"
	"devpair-be/internal/provider"
	"devpair-be/internal/queue"
	"devpair-be/internal/set"
	"devpair-be/internal/store"
)

type ReconcileResult struct {
	Group   *models.GroupChat `json:"group"`
	Created bool              `json:"created"`
	Added   []uint            `json:"added"`
	Removed []uint            `json:"removed"`
}

func (r *ReconcileResult) Changed() bool {
	return r.Created || len(r.Added) > 0 || len(r.Removed) > 0
}

// Reconcile overwrites the local member set of channelID with the
// provider's. A group missing locally is recreated from the provider
// channel, unless the channel belongs to a private conversation.
func (s *Synchronizer) Reconcile(ctx context.Context, channelID string) (*ReconcileResult, error) {
	return s.reconcile(ctx, channelID, 0)
}

// ReconcileAs is Reconcile on behalf of actor, who must be a member of the
// group locally or at the provider.
func (s *Synchronizer) ReconcileAs(ctx context.Context, channelID string, actor uint) (*ReconcileResult, error) {
	if actor == 0 {
		return nil, apperr.Validation("actor is required")
	}
	return s.reconcile(ctx, channelID, actor)
}

func (s *Synchronizer) reconcile(ctx context.Context, channelID string, actor uint) (*ReconcileResult, error) {
	if channelID == "" {
		return nil, apperr.Validation("channelId is required")
	}

	unlock, err := s.locker.Lock(ctx, channelID)
	if err != nil {
		return nil, apperr.Store("lock channel", err)
	}
	defer unlock()

	local, err := s.store.GroupByChannel(ctx, channelID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		local = nil
		if err := s.checkRestorable(ctx, channelID); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, apperr.Store("load group", err)
	}

	var remote *provider.ChannelHandle
	err = s.callProvider(ctx, func(ctx context.Context) error {
		var err error
		remote, err = s.provider.GetChannel(ctx, channelID)
		return err
	})
	if errors.Is(err, provider.ErrChannelNotFound) {
		return nil, apperr.NotFound("channel does not exist at the provider")
	}
	if err != nil {
		return nil, apperr.Upstream("could not read the group channel", err)
	}
	remoteMembers := set.Of(remote.Members...)

	if actor != 0 && !remoteMembers.Contains(actor) && (local == nil || !set.Of(local.Members...).Contains(actor)) {
		return nil, apperr.New(apperr.KindForbidden, "only group members can reconcile the group")
	}

	if local == nil {
		g := &models.GroupChat{
			ChannelID: channelID,
			Name:      remote.Name,
			OwnerID:   remote.CreatedBy,
			Members:   remoteMembers.Sorted(),
		}
		if err := s.store.UpsertGroup(ctx, g); err != nil {
			return nil, apperr.Store("restore group", err)
		}
		restored, err := s.store.GroupByChannel(ctx, channelID)
		if err != nil {
			return nil, apperr.Store("load group", err)
		}
		logger.Log.Info("restored group from provider", zap.String("channel_id", channelID))
		return &ReconcileResult{Group: restored, Created: true, Added: restored.Members}, nil
	}

	localMembers := set.Of(local.Members...)
	res := &ReconcileResult{
		Group:   local,
		Added:   remoteMembers.Diff(localMembers).Sorted(),
		Removed: localMembers.Diff(remoteMembers).Sorted(),
	}
	if !res.Changed() {
		return res, nil
	}

	if err := s.store.ReplaceGroupMembers(ctx, channelID, remoteMembers.Sorted()); err != nil {
		return nil, apperr.Store("overwrite group members", err)
	}
	if res.Group, err = s.store.GroupByChannel(ctx, channelID); err != nil {
		return nil, apperr.Store("load group", err)
	}

	logger.Log.Info("reconciled group members",
		zap.String("channel_id", channelID),
		zap.Uints("added", res.Added),
		zap.Uints("removed", res.Removed),
	)
	return res, nil
}

// checkRestorable refuses to turn a private conversation's channel into a
// group.
func (s *Synchronizer) checkRestorable(ctx context.Context, channelID string) error {
	if strings.HasPrefix(channelID, provider.PrivateChannelPrefix) {
		return apperr.New(apperr.KindInvalidOperation, "channel belongs to a private conversation")
	}
	_, err := s.store.ConversationByChannel(ctx, channelID)
	switch {
	case err == nil:
		return apperr.New(apperr.KindInvalidOperation, "channel belongs to a private conversation")
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return apperr.Store("load conversation", err)
	}
}

// HandleJob is the queue handler. Channels gone from the provider or owned
// by a private conversation are dropped, anything else is returned for a
// retry.
func (s *Synchronizer) HandleJob(ctx context.Context, job queue.Job) error {
	_, err := s.Reconcile(ctx, job.ChannelID)
	if apperr.Is(err, apperr.KindNotFound) || apperr.Is(err, apperr.KindInvalidOperation) {
		logger.Log.Warn("dropping reconcile job", zap.String("channel_id", job.ChannelID), zap.Error(err))
		return nil
	}
	return err
}

// ReconcileAll reconciles every known group and returns how many changed.
// Failures are logged and skipped.
func (s *Synchronizer) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.store.ChannelIDs(ctx)
	if err != nil {
		return 0, apperr.Store("list groups", err)
	}

	changed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}
		res, err := s.Reconcile(ctx, id)
		if err != nil {
			logger.Log.Warn("sweep: reconcile failed", zap.String("channel_id", id), zap.Error(err))
			continue
		}
		if res.Changed() {
			changed++
		}
	}
	return changed, nil
}

// RunSweeper calls ReconcileAll every interval until ctx is done.
func (s *Synchronizer) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ReconcileAll(ctx)
			if err != nil {
				logger.Log.Warn("sweep aborted", zap.Error(err))
				continue
			}
			logger.Log.Debug("sweep finished", zap.Int("changed", n))
		}
	}
}
