package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devpair-be/internal/apperr"
	"devpair-be/internal/models"
	"devpair-be/internal/store"
	"devpair-be/internal/store/storetest"
)

// flakyStore fails AddToSet/Pull on one set name while failNext is set.
type flakyStore struct {
	*store.Store
	mu       sync.Mutex
	failSet  string
	failNext int
}

func (f *flakyStore) shouldFail(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == f.failSet && f.failNext > 0 {
		f.failNext--
		return true
	}
	return false
}

func (f *flakyStore) AddToSet(ctx context.Context, name, owner string, members ...uint) error {
	if f.shouldFail(name) {
		return errors.New("write timeout")
	}
	return f.Store.AddToSet(ctx, name, owner, members...)
}

func (f *flakyStore) Pull(ctx context.Context, name, owner string, members ...uint) error {
	if f.shouldFail(name) {
		return errors.New("write timeout")
	}
	return f.Store.Pull(ctx, name, owner, members...)
}

type recordedEvent struct {
	users []uint
	event string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingNotifier) Notify(userIDs []uint, event string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{users: userIDs, event: event})
}

func setup(t *testing.T) (*Manager, *flakyStore, []models.User, *recordingNotifier) {
	t.Helper()
	s, db := storetest.Open(t)
	users := storetest.SeedUsers(t, db, "alice", "bob", "carol")
	fs := &flakyStore{Store: s}
	n := &recordingNotifier{}
	return NewManager(fs, n), fs, users, n
}

func assertEdge(t *testing.T, s *flakyStore, actor, target uint, want bool) {
	t.Helper()
	ctx := context.Background()

	following, err := s.Contains(ctx, models.SetFollowing, key(actor), target)
	require.NoError(t, err)
	followedBy, err := s.Contains(ctx, models.SetFollowers, key(target), actor)
	require.NoError(t, err)

	assert.Equal(t, want, following, "following half of %d->%d", actor, target)
	assert.Equal(t, want, followedBy, "followers half of %d->%d", actor, target)
}

func TestFollowUnfollow(t *testing.T) {
	m, s, users, n := setup(t)
	ctx := context.Background()
	a, b := users[0].ID, users[1].ID

	require.NoError(t, m.Follow(ctx, a, b))
	assertEdge(t, s, a, b, true)
	assertEdge(t, s, b, a, false)
	require.Len(t, n.events, 1)
	assert.Equal(t, []uint{b}, n.events[0].users)
	assert.Equal(t, EventFollowNew, n.events[0].event)

	ok, err := m.IsFollowing(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, m.Unfollow(ctx, a, b))
	assertEdge(t, s, a, b, false)
}

func TestFollowErrors(t *testing.T) {
	m, s, users, _ := setup(t)
	ctx := context.Background()
	a, b := users[0].ID, users[1].ID

	err := m.Follow(ctx, a, a)
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
	assertEdge(t, s, a, a, false)

	require.NoError(t, m.Follow(ctx, a, b))
	err = m.Follow(ctx, a, b)
	assert.True(t, apperr.Is(err, apperr.KindAlreadyExists))
	assertEdge(t, s, a, b, true)

	err = m.Follow(ctx, a, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = m.Unfollow(ctx, b, a)
	assert.True(t, apperr.Is(err, apperr.KindNotFollowing))

	err = m.Unfollow(ctx, a, a)
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
}

func TestFollowPartialFailureIsRetryable(t *testing.T) {
	m, s, users, _ := setup(t)
	ctx := context.Background()
	a, b := users[0].ID, users[1].ID

	s.failSet, s.failNext = models.SetFollowers, 1
	err := m.Follow(ctx, a, b)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPartialFailure))

	// the retry completes the missing half instead of reporting a conflict
	require.NoError(t, m.Follow(ctx, a, b))
	assertEdge(t, s, a, b, true)

	err = m.Follow(ctx, a, b)
	assert.True(t, apperr.Is(err, apperr.KindAlreadyExists))
}

func TestUnfollowPartialFailureIsRetryable(t *testing.T) {
	m, s, users, _ := setup(t)
	ctx := context.Background()
	a, b := users[0].ID, users[1].ID

	require.NoError(t, m.Follow(ctx, a, b))

	s.failSet, s.failNext = models.SetFollowers, 1
	err := m.Unfollow(ctx, a, b)
	assert.True(t, apperr.Is(err, apperr.KindPartialFailure))

	require.NoError(t, m.Unfollow(ctx, a, b))
	assertEdge(t, s, a, b, false)
}

func TestFirstWriteFailureLeavesNoEdge(t *testing.T) {
	m, s, users, _ := setup(t)
	ctx := context.Background()
	a, b := users[0].ID, users[1].ID

	s.failSet, s.failNext = models.SetFollowing, 1
	err := m.Follow(ctx, a, b)
	assert.True(t, apperr.Is(err, apperr.KindStoreUnavailable))
	assertEdge(t, s, a, b, false)
}

func TestConcurrentDuplicateFollow(t *testing.T) {
	m, s, users, _ := setup(t)
	ctx := context.Background()
	a, b := users[0].ID, users[1].ID

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Follow(ctx, a, b)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			assert.True(t, apperr.Is(err, apperr.KindAlreadyExists), "unexpected error %v", err)
		}
	}
	assertEdge(t, s, a, b, true)
}

func TestConcurrentFollowsOfDifferentTargets(t *testing.T) {
	m, s, users, _ := setup(t)
	ctx := context.Background()
	a := users[0].ID

	var wg sync.WaitGroup
	for _, target := range users[1:] {
		wg.Add(1)
		go func(target uint) {
			defer wg.Done()
			assert.NoError(t, m.Follow(ctx, a, target))
		}(target.ID)
	}
	wg.Wait()

	following, err := s.Members(ctx, models.SetFollowing, key(a))
	require.NoError(t, err)
	assert.Equal(t, []uint{users[1].ID, users[2].ID}, following.Sorted())
}

func TestListConnections(t *testing.T) {
	m, _, users, _ := setup(t)
	ctx := context.Background()
	a, b, c := users[0].ID, users[1].ID, users[2].ID

	require.NoError(t, m.Follow(ctx, a, b))
	require.NoError(t, m.Follow(ctx, b, a))
	require.NoError(t, m.Follow(ctx, c, a))

	conns, err := m.ListConnections(ctx, "alice", a)
	require.NoError(t, err)

	ids := func(cs []Connection) []uint {
		out := make([]uint, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.ID)
		}
		return out
	}
	assert.Equal(t, []uint{b, c}, ids(conns.Followers))
	assert.Equal(t, []uint{b}, ids(conns.Following))
	assert.Equal(t, []uint{b}, ids(conns.Mutual))
	assert.Equal(t, "bob", conns.Mutual[0].Username)

	for _, f := range conns.Followers {
		assert.Equal(t, f.ID == b, f.IsFollowedByViewer, "viewer flag for %d", f.ID)
	}

	// as seen by carol, who follows nobody but alice
	conns, err = m.ListConnections(ctx, "alice", c)
	require.NoError(t, err)
	for _, f := range conns.Followers {
		assert.False(t, f.IsFollowedByViewer)
	}

	_, err = m.ListConnections(ctx, "nobody", a)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
