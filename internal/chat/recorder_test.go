package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"devpair-be/internal/apperr"
	"devpair-be/internal/models"
	"devpair-be/internal/provider/providertest"
	"devpair-be/internal/store"
	"devpair-be/internal/store/storetest"
)

type notification struct {
	users []uint
	event string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (r *recordingNotifier) Notify(userIDs []uint, event string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification{users: userIDs, event: event})
}

func setup(t *testing.T) (*Recorder, *store.Store, *gorm.DB, *providertest.Fake, []models.User, *recordingNotifier) {
	t.Helper()
	s, db := storetest.Open(t)
	users := storetest.SeedUsers(t, db, "alice", "bob", "carol")
	fake := providertest.New()
	n := &recordingNotifier{}
	r := NewRecorder(s, fake, WithTimeout(100*time.Millisecond), WithNotifier(n))
	return r, s, db, fake, users, n
}

func TestRecordMessage(t *testing.T) {
	r, _, _, _, users, _ := setup(t)
	ctx := context.Background()
	a := users[0].ID

	msg, err := r.RecordMessage(ctx, RecordRequest{
		ChannelID:         "dm-1-2",
		SenderID:          a,
		Text:              "hi",
		Attachments:       []string{"https://cdn.example.com/a.png", " "},
		ProviderMessageID: "pm-1",
	}, a)
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.Equal(t, []string{"https://cdn.example.com/a.png"}, []string(msg.Attachments))
	require.NotNil(t, msg.ProviderMessageID)
	assert.Equal(t, "pm-1", *msg.ProviderMessageID)

	// attachments alone are enough
	_, err = r.RecordMessage(ctx, RecordRequest{ChannelID: "dm-1-2", SenderID: a, Attachments: []string{"x"}}, a)
	require.NoError(t, err)

	page, err := r.ListMessages(ctx, "dm-1-2", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "hi", page.Messages[0].Text)
	assert.Nil(t, page.Messages[1].ProviderMessageID)
	assert.Zero(t, page.Next)
}

func TestRecordMessageValidation(t *testing.T) {
	r, _, _, fake, users, _ := setup(t)
	ctx := context.Background()
	a, b := users[0].ID, users[1].ID

	testCases := []struct {
		name string
		req  RecordRequest
		kind apperr.Kind
	}{
		{"missing_channel", RecordRequest{SenderID: a, Text: "hi"}, apperr.KindValidation},
		{"empty_body", RecordRequest{ChannelID: "c", SenderID: a, Text: "  "}, apperr.KindValidation},
		{"blank_attachments", RecordRequest{ChannelID: "c", SenderID: a, Attachments: []string{""}}, apperr.KindValidation},
		{"missing_sender", RecordRequest{ChannelID: "c", Text: "hi"}, apperr.KindValidation},
		{"other_sender", RecordRequest{ChannelID: "c", SenderID: b, Text: "hi"}, apperr.KindForbidden},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.RecordMessage(ctx, tc.req, a)
			assert.True(t, apperr.Is(err, tc.kind), "got %v", err)
		})
	}

	page, err := r.ListMessages(ctx, "c", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.NotNil(t, page.Messages)

	_, err = r.ListMessages(ctx, " ", 0, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	assert.Zero(t, fake.Calls(providertest.OpCreateChannel), "recording never calls the provider")
}

func TestListMessagesPaging(t *testing.T) {
	r, _, _, _, users, _ := setup(t)
	ctx := context.Background()
	a := users[0].ID

	var ids []uint
	for _, text := range []string{"one", "two", "three", "four"} {
		m, err := r.RecordMessage(ctx, RecordRequest{ChannelID: "grp-x", SenderID: a, Text: text}, a)
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	page, err := r.ListMessages(ctx, "grp-x", 0, 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "one", page.Messages[0].Text)
	assert.Equal(t, "two", page.Messages[1].Text)
	assert.Equal(t, ids[1], page.Next)

	page, err = r.ListMessages(ctx, "grp-x", page.Next, 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, ids[2:], []uint{page.Messages[0].ID, page.Messages[1].ID})
	assert.Zero(t, page.Next, "last page")

	_, err = r.ListMessages(ctx, "grp-y", ids[0], 2)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "cursor from another channel")
}

func TestListMessagesPagesByTimestamp(t *testing.T) {
	r, s, _, _, users, _ := setup(t)
	ctx := context.Background()
	a := users[0].ID
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// ids run against send time
	late := &models.Message{ChannelID: "grp-skew", SenderID: a, Text: "late", CreatedAt: base.Add(time.Second)}
	early := &models.Message{ChannelID: "grp-skew", SenderID: a, Text: "early", CreatedAt: base}
	require.NoError(t, s.CreateMessage(ctx, late))
	require.NoError(t, s.CreateMessage(ctx, early))
	require.Less(t, late.ID, early.ID)

	var texts []string
	var after uint
	for i := 0; i < 3; i++ {
		page, err := r.ListMessages(ctx, "grp-skew", after, 1)
		require.NoError(t, err)
		for _, m := range page.Messages {
			texts = append(texts, m.Text)
		}
		if page.Next == 0 {
			break
		}
		after = page.Next
	}
	assert.Equal(t, []string{"early", "late"}, texts)
}

func TestConcurrentRecordsKeepOneOrder(t *testing.T) {
	r, _, _, _, users, _ := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(sender uint) {
			defer wg.Done()
			_, err := r.RecordMessage(ctx, RecordRequest{ChannelID: "grp-busy", SenderID: sender, Text: "ping"}, sender)
			assert.NoError(t, err)
		}(users[i%len(users)].ID)
	}
	wg.Wait()

	p1, err := r.ListMessages(ctx, "grp-busy", 0, 0)
	require.NoError(t, err)
	require.Len(t, p1.Messages, 20)
	p2, err := r.ListMessages(ctx, "grp-busy", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, p1.Messages, p2.Messages)

	first := p1.Messages

	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		assert.False(t, cur.CreatedAt.Before(prev.CreatedAt), "out of order at %d", i)
		if cur.CreatedAt.Equal(prev.CreatedAt) {
			assert.Greater(t, cur.ID, prev.ID)
		}
	}
}

func TestRecordMessageNotifiesMembers(t *testing.T) {
	r, s, _, _, users, n := setup(t)
	ctx := context.Background()
	a, b, c := users[0].ID, users[1].ID, users[2].ID

	require.NoError(t, s.UpsertGroup(ctx, &models.GroupChat{ChannelID: "grp-team", Name: "Team", OwnerID: a, Members: []uint{a, b, c}}))
	conv, err := r.OpenPrivate(ctx, a, b)
	require.NoError(t, err)

	_, err = r.RecordMessage(ctx, RecordRequest{ChannelID: "grp-team", SenderID: b, Text: "hi all"}, b)
	require.NoError(t, err)
	_, err = r.RecordMessage(ctx, RecordRequest{ChannelID: conv.ChannelID, SenderID: a, Text: "hi bob"}, a)
	require.NoError(t, err)

	require.Len(t, n.sent, 2)
	assert.Equal(t, []uint{a, b, c}, n.sent[0].users)
	assert.Equal(t, EventMessageNew, n.sent[0].event)
	assert.Equal(t, []uint{a, b}, n.sent[1].users)
}

func TestOpenPrivate(t *testing.T) {
	r, _, _, fake, users, _ := setup(t)
	ctx := context.Background()
	a, b := users[0].ID, users[1].ID

	conv, err := r.OpenPrivate(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, PrivateChannelID(a, b), conv.ChannelID)
	assert.Equal(t, models.ConversationPrivate, conv.Type)
	assert.Equal(t, []uint{a, b}, conv.ParticipantIDs)
	assert.Equal(t, []uint{a, b}, fake.Members(conv.ChannelID))

	again, err := r.OpenPrivate(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)

	_, err = r.OpenPrivate(ctx, a, a)
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
	_, err = r.OpenPrivate(ctx, a, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = r.OpenPrivate(ctx, a, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestOpenPrivateRemoteFailurePersistsNothing(t *testing.T) {
	r, _, db, fake, users, _ := setup(t)
	ctx := context.Background()
	a, c := users[0].ID, users[2].ID

	fake.FailNext(providertest.OpCreateChannel, errors.New("503"))
	_, err := r.OpenPrivate(ctx, a, c)
	assert.True(t, apperr.Is(err, apperr.KindUpstreamUnavailable))

	fake.SetLatency(time.Second)
	_, err = r.OpenPrivate(ctx, a, c)
	assert.True(t, apperr.Is(err, apperr.KindUpstreamUnavailable))

	var n int64
	require.NoError(t, db.Model(&models.Conversation{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestListConversationsForUser(t *testing.T) {
	r, s, _, _, users, _ := setup(t)
	ctx := context.Background()
	a, b, c := users[0].ID, users[1].ID, users[2].ID

	_, err := r.OpenPrivate(ctx, a, b)
	require.NoError(t, err)
	_, err = r.OpenPrivate(ctx, b, c)
	require.NoError(t, err)
	require.NoError(t, s.UpsertGroup(ctx, &models.GroupChat{ChannelID: "grp-team", Name: "Team", OwnerID: c, Members: []uint{a, c}}))

	convs, err := r.ListConversationsForUser(ctx, a)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, models.ConversationPrivate, convs[0].Type)
	assert.Equal(t, PrivateChannelID(a, b), convs[0].ChannelID)

	group := convs[1]
	assert.Equal(t, models.ConversationGroup, group.Type)
	assert.Equal(t, "grp-team", group.ChannelID)
	assert.Equal(t, "Team", group.Name)
	assert.Equal(t, c, group.AdminID)
	assert.Equal(t, []uint{a, c}, group.ParticipantIDs)

	convs, err = r.ListConversationsForUser(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestDeleteConversationCascadesMessages(t *testing.T) {
	r, _, _, _, users, _ := setup(t)
	ctx := context.Background()
	a, b, c := users[0].ID, users[1].ID, users[2].ID

	conv, err := r.OpenPrivate(ctx, a, b)
	require.NoError(t, err)
	_, err = r.RecordMessage(ctx, RecordRequest{ChannelID: conv.ChannelID, SenderID: a, Text: "hi"}, a)
	require.NoError(t, err)
	_, err = r.RecordMessage(ctx, RecordRequest{ChannelID: "grp-other", SenderID: a, Text: "kept"}, a)
	require.NoError(t, err)

	err = r.DeleteConversation(ctx, conv.ID, c)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	require.NoError(t, r.DeleteConversation(ctx, conv.ID, b))

	page, err := r.ListMessages(ctx, conv.ChannelID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	page, err = r.ListMessages(ctx, "grp-other", 0, 0)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 1)

	err = r.DeleteConversation(ctx, conv.ID, a)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAccessToken(t *testing.T) {
	r, _, _, fake, users, _ := setup(t)
	ctx := context.Background()
	a := users[0].ID

	token, err := r.AccessToken(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, 1, fake.Calls(providertest.OpUpsertUser))

	fake.FailNext(providertest.OpUpsertUser, errors.New("unauthorized"))
	_, err = r.AccessToken(ctx, a)
	assert.True(t, apperr.Is(err, apperr.KindUpstreamUnavailable))
	assert.Equal(t, 1, fake.Calls(providertest.OpIssueToken))

	_, err = r.AccessToken(ctx, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
