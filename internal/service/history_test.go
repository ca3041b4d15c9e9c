package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/chatstore"
	"github.com/set-night/mindchat/internal/domain"
)

func authedState() *domain.ClientState {
	return &domain.ClientState{ChatID: 5, Token: "t", UserID: "u1"}
}

func dialogAt(session, id, q, a string, at time.Time) domain.DialogRecord {
	return domain.DialogRecord{SessionID: session, RecordID: id, Question: q, Answer: a, CreatedAt: at, UpdatedAt: at}
}

func TestHistoryLoadReconcilesAndRestoresLastSession(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	fb := &fakeHistory{history: &backend.History{Dialog: []domain.DialogRecord{
		dialogAt("A", "1", "Hello", "Hi", base),
		dialogAt("B", "2", "Tired", "Rest", base.Add(time.Hour)),
	}}}
	svc := NewHistoryService(fb, newFakeStates(), chatstore.NewRegistry())
	state := authedState()
	state.LastSessionID = "A"

	sessions, err := svc.Load(context.Background(), state)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "B", sessions[0].SessionID)
	assert.Equal(t, "A", svc.Store(5).ActiveID())
}

func TestHistoryLoadKeepsOptimisticSessions(t *testing.T) {
	fb := &fakeHistory{history: &backend.History{}}
	svc := NewHistoryService(fb, newFakeStates(), chatstore.NewRegistry())
	state := authedState()
	local := svc.Store(5).UpsertOptimistic()

	sessions, err := svc.Load(context.Background(), state)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, local.SessionID, sessions[0].SessionID)
}

func TestHistoryLoadGuestStaysLocal(t *testing.T) {
	fb := &fakeHistory{err: errors.New("must not be called")}
	svc := NewHistoryService(fb, newFakeStates(), chatstore.NewRegistry())
	guest := &domain.ClientState{ChatID: 5, IsGuest: true, GuestName: "Tamu"}
	svc.Store(5).UpsertOptimistic()

	sessions, err := svc.Load(context.Background(), guest)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestHistoryDeleteIsOptimistic(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	fb := &fakeHistory{history: &backend.History{Dialog: []domain.DialogRecord{dialogAt("A", "1", "Hello", "Hi", base)}}}
	states := newFakeStates()
	svc := NewHistoryService(fb, states, chatstore.NewRegistry())
	state := authedState()

	_, err := svc.Load(context.Background(), state)
	require.NoError(t, err)
	_, err = svc.Switch(context.Background(), state, "A")
	require.NoError(t, err)
	assert.Equal(t, "A", states.last[5])

	fb.err = errors.New("backend down")
	err = svc.Delete(context.Background(), state, "A")
	require.Error(t, err)

	// gone locally even though the backend failed
	_, ok := svc.Store(5).Get("A")
	assert.False(t, ok)
	assert.Empty(t, svc.Store(5).ActiveID())
	assert.Empty(t, svc.Store(5).ActiveMessages())
	assert.Equal(t, "", states.last[5])
	assert.Equal(t, []string{"A"}, fb.deleted)

	assert.ErrorIs(t, svc.Delete(context.Background(), state, "A"), domain.ErrSessionNotFound)
}

func TestHistoryDeleteOptimisticSkipsBackend(t *testing.T) {
	fb := &fakeHistory{}
	svc := NewHistoryService(fb, newFakeStates(), chatstore.NewRegistry())
	state := authedState()
	local := svc.Store(5).UpsertOptimistic()

	require.NoError(t, svc.Delete(context.Background(), state, local.SessionID))
	assert.Empty(t, fb.deleted)
}

func TestHistoryRename(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	fb := &fakeHistory{history: &backend.History{Dialog: []domain.DialogRecord{dialogAt("A", "1", "Hello", "Hi", base)}}}
	svc := NewHistoryService(fb, newFakeStates(), chatstore.NewRegistry())
	state := authedState()
	_, err := svc.Load(context.Background(), state)
	require.NoError(t, err)

	_, err = svc.Rename(context.Background(), state, "A", "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	title, err := svc.Rename(context.Background(), state, "A", "A much longer title than thirty characters")
	require.NoError(t, err)
	assert.Equal(t, "A much longer title than thirt", title)
	assert.Equal(t, title, fb.renamed["A"])

	sess, _ := svc.Store(5).Get("A")
	assert.Equal(t, title, sess.Title)

	_, err = svc.Rename(context.Background(), state, "missing", "x")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestHistoryNewClearsActive(t *testing.T) {
	states := newFakeStates()
	svc := NewHistoryService(&fakeHistory{}, states, chatstore.NewRegistry())
	state := authedState()
	svc.Store(5).UpsertOptimistic()
	state.LastSessionID = "x"

	svc.New(context.Background(), state)
	assert.Empty(t, svc.Store(5).ActiveID())
	assert.Empty(t, state.LastSessionID)
	assert.Equal(t, "", states.last[5])
}
