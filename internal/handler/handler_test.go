package handler

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/service"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text, name, args string
		ok               bool
	}{
		{"/start", "start", "", true},
		{"/quote_add Sad | Hold on", "quote_add", "Sad | Hold on", true},
		{"/Login a@b.co secret", "login", "a@b.co secret", true},
		{"/help@MindChatBot", "help", "", true},
		{"/help@OtherBot", "", "", false},
		{"/category_add\nCalm | Quiet things", "category_add", "Calm | Quiet things", true},
		{"hello there", "", "", false},
		{"/", "", "", false},
	}
	for _, tt := range tests {
		name, args, ok := parseCommand(tt.text, "mindchatbot")
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.name, name, tt.text)
		assert.Equal(t, tt.args, args, tt.text)
	}
}

func TestCommandTableHasNoPrefixShadowing(t *testing.T) {
	h := New(Deps{})
	for _, name := range []string{"quote", "quote_add", "quote_del", "category_add", "user_del", "content_del"} {
		_, ok := h.commands[name]
		assert.True(t, ok, name)
	}
}

func TestBotCommandsHideAdmin(t *testing.T) {
	h := New(Deps{})
	cmds := h.BotCommands()
	require.NotEmpty(t, cmds)
	for _, c := range cmds {
		assert.NotContains(t, []string{"admin", "users", "quote_add", "start"}, c.Command)
		assert.NotContains(t, c.Description, "<")
		assert.NotContains(t, c.Description, "[")
	}
	assert.Equal(t, "breathe", cmds[0].Command)
}

func TestHelpTextShowsAdminOnlyToAdmins(t *testing.T) {
	h := New(Deps{})
	user := &domain.ClientState{Token: "t", UserID: "u", Role: "user"}
	admin := &domain.ClientState{Token: "t", UserID: "u", Role: "admin"}

	assert.NotContains(t, h.helpText(user), "/quote_add")
	assert.Contains(t, h.helpText(admin), "/quote_add")
	assert.Contains(t, h.helpText(user), "/history")
}

func TestErrorText(t *testing.T) {
	text, expected := errorText(&domain.ValidationError{Field: "password", Reason: "must be at least 6 characters"})
	assert.True(t, expected)
	assert.Equal(t, "⚠️ Password must be at least 6 characters.", text)

	text, expected = errorText(fmt.Errorf("verify: %w", domain.ErrUnauthorized))
	assert.True(t, expected)
	assert.Contains(t, text, "/login")

	text, expected = errorText(&backend.APIError{Status: 409, Message: "Email already registered"})
	assert.True(t, expected)
	assert.Equal(t, "⚠️ Email already registered", text)

	_, expected = errorText(&backend.APIError{Status: 500, Message: "stack trace"})
	assert.False(t, expected)

	_, expected = errorText(errors.New("boom"))
	assert.False(t, expected)
}

func TestSplitPipe(t *testing.T) {
	assert.Equal(t, []string{"Sad", "This too shall pass", "Anon | extra"}, splitPipe(" Sad | This too shall pass | Anon | extra", 3))
	assert.Equal(t, []string{"Calm"}, splitPipe("Calm", 2))
}

func sessionAt(id, title string, at time.Time) domain.ChatSession {
	return domain.ChatSession{SessionID: id, Title: title, LastUpdatedAt: at, CreatedAt: at}
}

func TestRenderHistoryPage(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	state := &domain.ClientState{Token: "t", UserID: "u", Theme: "plain"}
	sessions := []domain.ChatSession{
		sessionAt("a", "Sleep", now.Add(-time.Hour)),
		sessionAt("b", "Work stress", now.AddDate(0, 0, -3)),
		sessionAt("c", "Old talk", now.AddDate(0, -3, 0)),
	}

	text, kb := renderHistoryPage(state, sessions, "b", 0, now)
	assert.Contains(t, text, "Today\n• Sleep")
	assert.Contains(t, text, "Previous 7 days\n• Work stress ✅")
	assert.Contains(t, text, "Older\n• Old talk")
	require.NotNil(t, kb)
	// three sessions plus the new-conversation row, no pagination
	require.Len(t, kb.InlineKeyboard, 4)
	assert.Equal(t, "hist_open_a", kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "hist_del_a", kb.InlineKeyboard[0][1].CallbackData)
}

func TestRenderHistoryPagePaging(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	state := &domain.ClientState{IsGuest: true, GuestName: "Tamu"}
	var sessions []domain.ChatSession
	for i := range config.SessionsPerPage + 2 {
		sessions = append(sessions, sessionAt(fmt.Sprint(i), fmt.Sprintf("s%d", i), now.Add(-time.Duration(i)*time.Minute)))
	}

	text, kb := renderHistoryPage(state, sessions, "", 5, now)
	assert.Contains(t, text, "guest")
	// page is clamped to the last one, which holds two sessions
	require.Len(t, kb.InlineKeyboard, 4)
	assert.Equal(t, "hist_open_"+fmt.Sprint(config.SessionsPerPage), kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "hist_page_0", kb.InlineKeyboard[2][0].CallbackData)

	text, kb = renderHistoryPage(state, nil, "", 0, now)
	assert.Contains(t, text, "Nothing here yet")
	assert.Nil(t, kb)
}

func TestRenderTranscript(t *testing.T) {
	sess := domain.ChatSession{Title: "Sleep"}
	for i := range 12 {
		sender := domain.SenderUser
		if i%2 == 1 {
			sender = domain.SenderBot
		}
		sess.Messages = append(sess.Messages, domain.Message{Text: fmt.Sprintf("<p>m%d</p>", i), Sender: sender})
	}
	state := &domain.ClientState{Theme: "plain"}

	text := renderTranscript(state, sess, 4)
	assert.True(t, strings.HasPrefix(text, "Sleep\n(last 4 of 12 messages)"))
	assert.Contains(t, text, "You: <p>m8</p>")
	assert.Contains(t, text, "Bot: m11")
	assert.NotContains(t, text, "m7")
}

func TestFormatStats(t *testing.T) {
	text := formatStats(&service.DashboardStats{
		Users: 3, Admins: 1, Quotes: 4, Categories: 2, Contents: 1,
		Shares: []service.CategoryShare{{Category: "Sad", Quotes: 2, Percent: decimal.NewFromInt(50)}},
	})
	assert.Contains(t, text, "Users: 3 (admins: 1)")
	assert.Contains(t, text, "Quotes: 4 in 2 categories")
	assert.Contains(t, text, "• Sad: 2 (50.0%)")
}

func TestRenderQuoteListShowsMostRecent(t *testing.T) {
	var quotes []domain.Quote
	for i := range 15 {
		quotes = append(quotes, domain.Quote{ID: fmt.Sprintf("q%d", i), Text: "text"})
	}
	text := renderQuoteList(quotes, 10)
	assert.Contains(t, text, "Quotes (15)")
	assert.Contains(t, text, "[q14]")
	assert.NotContains(t, text, "[q4]")
	assert.Contains(t, renderQuoteList(nil, 10), "No quotes yet")
}

func TestRenderUsersTruncates(t *testing.T) {
	users := []domain.UserSummary{{ID: "1", Name: "A", Email: "a@x.io", Role: "admin"}, {ID: "2", Name: "B", Email: "b@x.io"}}
	text := renderUsers(users, 1)
	assert.Contains(t, text, "[1] A (a@x.io) admin")
	assert.Contains(t, text, "...and 1 more")
}

func TestProfileText(t *testing.T) {
	guest := &domain.ClientState{IsGuest: true, GuestName: "Tamu", Theme: "calm"}
	assert.Contains(t, profileText(guest), "Mode: guest")

	user := &domain.ClientState{Token: "t", UserID: "u", DisplayName: "Sari", Email: "sari@example.com", Theme: "plain"}
	text := profileText(user)
	assert.Contains(t, text, "Email: sari@example.com")
	assert.Contains(t, text, "Role: user")
}

func TestIconAndTruncate(t *testing.T) {
	assert.Equal(t, "🌿 ", icon(&domain.ClientState{Theme: "calm"}, "🌿"))
	assert.Equal(t, "", icon(&domain.ClientState{Theme: "plain"}, "🌿"))
	assert.Equal(t, "🌿 ", icon(nil, "🌿"))

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
