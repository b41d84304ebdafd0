// Package providertest holds an in-memory chat provider with failure
// injection.
package providertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"devpair-be/internal/provider"
	"devpair-be/internal/set"
)

// Operation names accepted by FailNext and Calls.
const (
	OpCreateChannel = "CreateChannel"
	OpAddMembers    = "AddMembers"
	OpRemoveMembers = "RemoveMembers"
	OpGetChannel    = "GetChannel"
	OpUpsertUser    = "UpsertUser"
	OpIssueToken    = "IssueAccessToken"
)

type channel struct {
	name      string
	createdBy uint
	members   set.Set[uint]
}

type Fake struct {
	mu       sync.Mutex
	channels map[string]*channel
	users    map[uint]provider.User
	failures map[string][]error
	calls    map[string]int
	latency  time.Duration
}

var _ provider.Provider = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		channels: map[string]*channel{},
		users:    map[uint]provider.User{},
		failures: map[string][]error{},
		calls:    map[string]int{},
	}
}

// FailNext makes the next call of op return err without side effects.
func (f *Fake) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], err)
}

// SetLatency delays every call; calls give up when their context ends.
func (f *Fake) SetLatency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
}

func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Members returns the provider-side member set of a channel, sorted.
func (f *Fake) Members(channelID string) []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil
	}
	return ch.members.Sorted()
}

// SetMembers overwrites a channel's members, simulating changes made
// directly at the provider.
func (f *Fake) SetMembers(channelID string, members []uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.channels[channelID]; ok {
		ch.members = set.Of(members...)
	}
}

func (f *Fake) ChannelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

func (f *Fake) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	latency := f.latency
	var err error
	if q := f.failures[op]; len(q) > 0 {
		err = q[0]
		f.failures[op] = q[1:]
	}
	f.mu.Unlock()

	if latency > 0 {
		t := time.NewTimer(latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}

func (f *Fake) CreateChannel(ctx context.Context, spec provider.ChannelSpec) (*provider.ChannelHandle, error) {
	if err := f.enter(ctx, OpCreateChannel); err != nil {
		return nil, err
	}
	if spec.ID == "" {
		return nil, fmt.Errorf("providertest: channel id required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[spec.ID]
	if !ok {
		ch = &channel{name: spec.Name, createdBy: spec.CreatedBy, members: set.Of(spec.Members...)}
		f.channels[spec.ID] = ch
	}
	return handle(spec.ID, ch), nil
}

func (f *Fake) AddMembers(ctx context.Context, channelID string, members []uint) error {
	if err := f.enter(ctx, OpAddMembers); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return provider.ErrChannelNotFound
	}
	ch.members.Add(members...)
	return nil
}

func (f *Fake) RemoveMembers(ctx context.Context, channelID string, members []uint) error {
	if err := f.enter(ctx, OpRemoveMembers); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return provider.ErrChannelNotFound
	}
	ch.members.Remove(members...)
	return nil
}

func (f *Fake) GetChannel(ctx context.Context, channelID string) (*provider.ChannelHandle, error) {
	if err := f.enter(ctx, OpGetChannel); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, provider.ErrChannelNotFound
	}
	return handle(channelID, ch), nil
}

func (f *Fake) UpsertUser(ctx context.Context, u provider.User) error {
	if err := f.enter(ctx, OpUpsertUser); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	return nil
}

func (f *Fake) IssueAccessToken(ctx context.Context, userID uint) (string, error) {
	if err := f.enter(ctx, OpIssueToken); err != nil {
		return "", err
	}
	return "token-" + provider.UserKey(userID), nil
}

func handle(id string, ch *channel) *provider.ChannelHandle {
	return &provider.ChannelHandle{
		ID:        id,
		Name:      ch.name,
		Members:   ch.members.Sorted(),
		CreatedBy: ch.createdBy,
	}
}
