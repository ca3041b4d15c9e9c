package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 8 * * *"))
	assert.Error(t, ValidateSchedule("0 0 8 * * *"))
	assert.Error(t, ValidateSchedule("daily"))
}

func TestBroadcastSkipsFailedDeliveries(t *testing.T) {
	subs := &fakeSubs{ids: []int64{1, 2, 3}}
	content := NewContentService(contentFixture(), time.Minute)

	var got []int64
	send := func(_ context.Context, chatID int64, text string) error {
		if chatID == 2 {
			return errors.New("bot was blocked by the user")
		}
		assert.Contains(t, text, "Quote of the day")
		got = append(got, chatID)
		return nil
	}

	svc := NewDigestService(subs, content, send)
	sent, err := svc.Broadcast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []int64{1, 3}, got)
}

func TestBroadcastWithoutSubscribers(t *testing.T) {
	fb := contentFixture()
	svc := NewDigestService(&fakeSubs{}, NewContentService(fb, time.Minute), func(context.Context, int64, string) error {
		t.Fatal("nothing to send")
		return nil
	})
	sent, err := svc.Broadcast(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, fb.calls["quotes"])
}

func TestToggleSubscription(t *testing.T) {
	subs := &fakeSubs{}
	svc := NewDigestService(subs, nil, nil)

	on, err := svc.Toggle(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = svc.Toggle(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, on)
	assert.Empty(t, subs.ids)
}

func TestFormatQuote(t *testing.T) {
	assert.Equal(t, "“Breathe”", FormatQuote("Breathe", ""))
	assert.Equal(t, "“Breathe”\n— Anon", FormatQuote("Breathe", "Anon"))
}
