package dispatch

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/chatstore"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

type fakeBackend struct {
	mu sync.Mutex

	answers  []string
	errs     []error
	calls    []backend.CompletionRequest
	saved    []backend.Exchange
	renamed  map[string]string
	fetches  int
	block    chan struct{}
	inFlight atomic.Int32
	maxPar   atomic.Int32
}

func (f *fakeBackend) Complete(ctx context.Context, token string, in backend.CompletionRequest) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxPar.Load()
		if n <= cur || f.maxPar.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, in)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.answers) {
		return f.answers[i], nil
	}
	return "ok", nil
}

func (f *fakeBackend) SaveExchange(ctx context.Context, token string, ex backend.Exchange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, ex)
	return nil
}

func (f *fakeBackend) RenameSession(ctx context.Context, token, sessionID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renamed == nil {
		f.renamed = map[string]string{}
	}
	f.renamed[sessionID] = title
	return nil
}

func (f *fakeBackend) FetchHistory(ctx context.Context, token, userID string) (*backend.History, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++

	// the server view: every saved exchange as a dialog record
	h := &backend.History{}
	for i, ex := range f.saved {
		h.Dialog = append(h.Dialog, domain.DialogRecord{
			SessionID: ex.SessionID,
			RecordID:  strconv.Itoa(i),
			Question:  ex.Question,
			Answer:    ex.Answer,
			Title:     f.renamed[ex.SessionID],
			CreatedAt: ex.Timestamp,
			UpdatedAt: ex.Timestamp,
		})
	}
	return h, nil
}

func user() domain.ClientState {
	return domain.ClientState{ChatID: 7, Token: "tok", UserID: "u1", DisplayName: "Sari"}
}

func TestSendCreatesOneSessionAndOneUserMessage(t *testing.T) {
	fb := &fakeBackend{answers: []string{"Aku di sini untuk dengarin kamu"}}
	d := New(fb, Options{Timeout: time.Second, Attempts: 1})
	store := chatstore.New()

	res, err := d.Send(context.Background(), Request{ChatID: 7, State: user(), Store: store, Text: "Aku sedih"})
	require.NoError(t, err)

	assert.True(t, res.Created)
	require.Equal(t, 1, store.Len())
	sess, ok := store.Active()
	require.True(t, ok)
	assert.Equal(t, res.SessionID, sess.SessionID)

	var userMsgs int
	for _, m := range sess.Messages {
		if m.IsFromUser() {
			userMsgs++
		}
	}
	assert.Equal(t, 1, userMsgs)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "Aku di sini untuk dengarin kamu", sess.Messages[1].Text)
	assert.Equal(t, "Aku sedih", sess.Title)
}

func TestSendTranscriptAndPersistence(t *testing.T) {
	fb := &fakeBackend{answers: []string{"first reply", "second reply"}}
	d := New(fb, Options{Timeout: time.Second, Attempts: 1})
	store := chatstore.New()
	ctx := context.Background()

	_, err := d.Send(ctx, Request{ChatID: 7, State: user(), Store: store, Text: "hello"})
	require.NoError(t, err)
	res, err := d.Send(ctx, Request{ChatID: 7, State: user(), Store: store, Text: "again"})
	require.NoError(t, err)
	assert.False(t, res.Created)

	require.Len(t, fb.calls, 2)
	second := fb.calls[1]
	require.Len(t, second.Messages, 4)
	assert.Equal(t, "system", second.Messages[0].Role)
	assert.Equal(t, config.SystemInstruction, second.Messages[0].Content)
	assert.Equal(t, "user", second.Messages[1].Role)
	assert.Equal(t, "assistant", second.Messages[2].Role)
	assert.Equal(t, "again", second.Messages[3].Content)
	assert.Equal(t, "u1", second.UserID)
	assert.Equal(t, res.SessionID, second.SessionID)

	require.Len(t, fb.saved, 2)
	assert.Equal(t, "again", fb.saved[1].Question)
	assert.Equal(t, "second reply", fb.saved[1].Answer)
}

func TestSendRenamesFirstExchangeAndRefreshes(t *testing.T) {
	fb := &fakeBackend{}
	d := New(fb, Options{Timeout: time.Second, Attempts: 1})
	store := chatstore.New()
	text := "Aku tidak bisa tidur beberapa malam ini"

	res, err := d.Send(context.Background(), Request{ChatID: 7, State: user(), Store: store, Text: text})
	require.NoError(t, err)

	assert.True(t, res.Renamed)
	assert.Equal(t, "Aku tidak bisa tidur beberapa ", fb.renamed[res.SessionID])
	assert.Equal(t, 1, fb.fetches)

	_, err = d.Send(context.Background(), Request{ChatID: 7, State: user(), Store: store, Text: "more"})
	require.NoError(t, err)
	assert.Equal(t, 1, fb.fetches, "only the first exchange triggers a rename")
}

func TestSendFallbackOnEmptyAnswer(t *testing.T) {
	fb := &fakeBackend{answers: []string{""}}
	d := New(fb, Options{Timeout: time.Second, Attempts: 1})
	store := chatstore.New()

	res, err := d.Send(context.Background(), Request{ChatID: 7, State: user(), Store: store, Text: "hm"})
	require.NoError(t, err)

	assert.False(t, res.Failed)
	assert.Equal(t, config.FallbackAnswer, res.Reply.Text)
	msgs := store.ActiveMessages()
	assert.Equal(t, config.FallbackAnswer, msgs[len(msgs)-1].Text)
}

func TestSendFailureAppendsApologyWithoutPersisting(t *testing.T) {
	fb := &fakeBackend{errs: []error{&backend.APIError{Status: http.StatusBadRequest}}}
	d := New(fb, Options{Timeout: time.Second, Attempts: 3})
	store := chatstore.New()

	var started, stopped int
	typing := func(ctx context.Context) context.CancelFunc {
		started++
		return func() { stopped++ }
	}

	res, err := d.Send(context.Background(), Request{ChatID: 7, State: user(), Store: store, Text: "hi", Typing: typing})
	require.NoError(t, err)

	assert.True(t, res.Failed)
	assert.Error(t, res.Err)
	assert.Equal(t, config.ApologyAnswer, res.Reply.Text)
	assert.Len(t, fb.calls, 1, "client errors are not retried")
	assert.Empty(t, fb.saved)
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, stopped)
}

func TestSendRetriesTransientFailure(t *testing.T) {
	fb := &fakeBackend{
		errs:    []error{&backend.APIError{Status: http.StatusServiceUnavailable}},
		answers: []string{"", "recovered"},
	}
	d := New(fb, Options{Timeout: time.Second, Attempts: 2, Backoff: time.Millisecond})

	res, err := d.Send(context.Background(), Request{ChatID: 7, State: user(), Store: chatstore.New(), Text: "hi"})
	require.NoError(t, err)
	assert.False(t, res.Failed)
	assert.Equal(t, "recovered", res.Reply.Text)
	assert.Len(t, fb.calls, 2)
}

func TestSendTimesOut(t *testing.T) {
	fb := &fakeBackend{block: make(chan struct{})}
	d := New(fb, Options{Timeout: 20 * time.Millisecond, Attempts: 1})

	res, err := d.Send(context.Background(), Request{ChatID: 7, State: user(), Store: chatstore.New(), Text: "hi"})
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.True(t, errors.Is(res.Err, context.DeadlineExceeded))
}

func TestGuestNeverPersists(t *testing.T) {
	fb := &fakeBackend{}
	d := New(fb, Options{Timeout: time.Second, Attempts: 1})
	guest := domain.ClientState{ChatID: 9, IsGuest: true, GuestName: "Tamu"}

	res, err := d.Send(context.Background(), Request{ChatID: 9, State: guest, Store: chatstore.New(), Text: "hi"})
	require.NoError(t, err)

	assert.False(t, res.Renamed)
	assert.Empty(t, fb.saved)
	assert.Empty(t, fb.renamed)
	assert.Equal(t, 0, fb.fetches)
	assert.Equal(t, "guest-9", fb.calls[0].UserID)
}

func TestSendSerializesPerChat(t *testing.T) {
	fb := &fakeBackend{block: make(chan struct{})}
	d := New(fb, Options{Timeout: 5 * time.Second, Attempts: 1})
	store := chatstore.New()
	guest := domain.ClientState{ChatID: 3, IsGuest: true}

	var wg sync.WaitGroup
	for _, text := range []string{"one", "two", "three"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Send(context.Background(), Request{ChatID: 3, State: guest, Store: store, Text: text})
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return d.Busy(3) }, time.Second, time.Millisecond)
	for range 3 {
		fb.block <- struct{}{}
	}
	wg.Wait()

	assert.Equal(t, int32(1), fb.maxPar.Load())
	assert.False(t, d.Busy(3))
	require.Equal(t, 1, store.Len())

	msgs := store.ActiveMessages()
	require.Len(t, msgs, 6)
	for i := 0; i < len(msgs); i += 2 {
		assert.True(t, msgs[i].IsFromUser())
		assert.False(t, msgs[i+1].IsFromUser())
	}
}

func TestSendCancelledWhileQueued(t *testing.T) {
	fb := &fakeBackend{block: make(chan struct{})}
	d := New(fb, Options{Timeout: 5 * time.Second, Attempts: 1})
	store := chatstore.New()
	guest := domain.ClientState{ChatID: 4, IsGuest: true}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = d.Send(context.Background(), Request{ChatID: 4, State: guest, Store: store, Text: "first"})
	}()
	require.Eventually(t, func() bool { return fb.inFlight.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := d.Send(ctx, Request{ChatID: 4, State: guest, Store: store, Text: "second"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	fb.block <- struct{}{}
	<-done
	assert.Len(t, store.ActiveMessages(), 2)
}

func TestSendAfterActiveDeleted(t *testing.T) {
	fb := &fakeBackend{}
	d := New(fb, Options{Timeout: time.Second, Attempts: 1})
	store := chatstore.New()
	guest := domain.ClientState{ChatID: 5, IsGuest: true}

	first, err := d.Send(context.Background(), Request{ChatID: 5, State: guest, Store: store, Text: "a"})
	require.NoError(t, err)
	store.Remove(first.SessionID)

	second, err := d.Send(context.Background(), Request{ChatID: 5, State: guest, Store: store, Text: "b"})
	require.NoError(t, err)
	assert.True(t, second.Created)
	assert.Equal(t, 1, store.Len())
}
