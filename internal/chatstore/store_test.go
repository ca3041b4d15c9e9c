package chatstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

func fixedClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

func TestUpsertOptimistic(t *testing.T) {
	st := NewWithClock(fixedClock(time.UnixMilli(1_700_000_000_000)))

	first := st.UpsertOptimistic()
	second := st.UpsertOptimistic()

	assert.Equal(t, "1700000000001", first.SessionID)
	assert.Equal(t, "local-1700000000001", first.DisplayID)
	assert.Equal(t, config.PlaceholderTitle, first.Title)
	assert.True(t, first.Optimistic)

	sessions := st.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, second.SessionID, sessions[0].SessionID, "newest goes to the head")
	assert.Equal(t, second.SessionID, st.ActiveID())
}

func TestAppendMessageSetsTitleFromFirstUserMessage(t *testing.T) {
	st := New()
	sess := st.UpsertOptimistic()

	err := st.AppendMessage(sess.SessionID, domain.Message{
		ID:     "m1",
		Text:   "Aku merasa cemas sebelum ujian besok pagi",
		Sender: domain.SenderUser,
	})
	require.NoError(t, err)

	got, ok := st.Get(sess.SessionID)
	require.True(t, ok)
	assert.Equal(t, "Aku merasa cemas sebelum ujian", got.Title)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, sess.SessionID, got.Messages[0].SessionID)
	assert.False(t, got.Messages[0].Timestamp.IsZero())
}

func TestAppendMessageKeepsExistingTitle(t *testing.T) {
	st := New()
	sess := st.UpsertOptimistic()
	require.NoError(t, st.Rename(sess.SessionID, "Sleep"))

	require.NoError(t, st.AppendMessage(sess.SessionID, domain.Message{ID: "m1", Text: "hello", Sender: domain.SenderUser}))

	got, _ := st.Get(sess.SessionID)
	assert.Equal(t, "Sleep", got.Title)
}

func TestAppendMessageBotFirstDoesNotName(t *testing.T) {
	st := New()
	sess := st.UpsertOptimistic()
	require.NoError(t, st.AppendMessage(sess.SessionID, domain.Message{ID: "m1", Text: "Hi!", Sender: domain.SenderBot}))

	got, _ := st.Get(sess.SessionID)
	assert.Equal(t, config.PlaceholderTitle, got.Title)
}

func TestAppendMessageUnknownSession(t *testing.T) {
	st := New()
	err := st.AppendMessage("missing", domain.Message{ID: "m1", Text: "x", Sender: domain.SenderUser})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRemoveActiveClearsView(t *testing.T) {
	st := New()
	sess := st.UpsertOptimistic()
	require.NoError(t, st.AppendMessage(sess.SessionID, domain.Message{ID: "m1", Text: "hi", Sender: domain.SenderUser}))

	assert.True(t, st.Remove(sess.SessionID))

	_, ok := st.Active()
	assert.False(t, ok)
	assert.Empty(t, st.ActiveID())
	assert.Empty(t, st.ActiveMessages())
	assert.Equal(t, 0, st.Len())
}

func TestRemoveInactiveKeepsActive(t *testing.T) {
	st := NewWithClock(fixedClock(time.Now()))
	older := st.UpsertOptimistic()
	newer := st.UpsertOptimistic()

	assert.True(t, st.Remove(older.SessionID))
	assert.Equal(t, newer.SessionID, st.ActiveID())
	assert.False(t, st.Remove(older.SessionID))
}

func TestReplaceAllMergesOptimistic(t *testing.T) {
	st := NewWithClock(fixedClock(time.Now()))
	local := st.UpsertOptimistic()
	assert.False(t, st.Loaded())

	st.ReplaceAll([]domain.ChatSession{
		{SessionID: "srv", Title: "From server", LastUpdatedAt: time.Now().Add(-time.Hour)},
	})

	sessions := st.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, local.SessionID, sessions[0].SessionID)
	assert.Equal(t, "srv", sessions[1].SessionID)
	assert.Equal(t, local.SessionID, st.ActiveID())
	assert.True(t, st.Loaded())

	st.Reset()
	assert.False(t, st.Loaded())
}

func TestReplaceAllDropsVanishedActive(t *testing.T) {
	st := New()
	st.ReplaceAll([]domain.ChatSession{{SessionID: "a"}, {SessionID: "b"}})
	require.NoError(t, st.SetActive("a"))

	st.ReplaceAll([]domain.ChatSession{{SessionID: "b"}})
	assert.Empty(t, st.ActiveID())
}

func TestMarkPersistedThenReplace(t *testing.T) {
	st := New()
	sess := st.UpsertOptimistic()
	st.MarkPersisted(sess.SessionID)

	st.ReplaceAll(nil)
	assert.Equal(t, 0, st.Len(), "a persisted session missing from the server is gone")
}

func TestSessionsReturnsCopies(t *testing.T) {
	st := New()
	sess := st.UpsertOptimistic()
	require.NoError(t, st.AppendMessage(sess.SessionID, domain.Message{ID: "m1", Text: "hi", Sender: domain.SenderUser}))

	list := st.Sessions()
	list[0].Messages[0].Text = "mutated"
	list[0].Title = "mutated"

	got, _ := st.Get(sess.SessionID)
	assert.Equal(t, "hi", got.Messages[0].Text)
	assert.Equal(t, "hi", got.Title)
}

func TestSetActiveUnknown(t *testing.T) {
	st := New()
	assert.ErrorIs(t, st.SetActive("nope"), domain.ErrSessionNotFound)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := r.For(1)
	assert.Same(t, a, r.For(1))
	assert.NotSame(t, a, r.For(2))

	r.Drop(1)
	assert.NotSame(t, a, r.For(1))
}
