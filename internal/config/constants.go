package config

import "time"

const (
	// Session titles
	TitleMaxLen      = 30
	PlaceholderTitle = "New conversation"

	// Chat replies
	FallbackAnswer = "Sorry, I didn't understand that."
	ApologyAnswer  = "Sorry, something went wrong. Please try again in a moment."

	// SystemInstruction is sent ahead of every transcript.
	SystemInstruction = "You are a warm, empathetic mental-health support companion. " +
		"Listen carefully, answer in the user's language, keep replies short and kind, " +
		"never diagnose, and encourage professional help when the user may be at risk."

	// Completion retry backoff base
	CompletionBackoff = 2 * time.Second

	// Credential validation
	MinPasswordLen = 6
	MaxNameLen     = 64

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Content cache duration
	ContentCacheDuration = 10 * time.Minute

	// Rate limits (per minute)
	RateLimitRegular = 12

	// Stale rate-limit window cleanup interval
	RateLimitCleanup = 5 * time.Minute

	// History list paging
	SessionsPerPage = 6

	// Quotes per page in admin listings
	QuotesPerPage = 10

	// Breathing defaults
	DefaultBreathingPattern = "478"
	DefaultBreathingCycles  = 4
	MaxBreathingCycles      = 10
)

// Themes selectable with /theme.
var Themes = []string{"calm", "plain"}

const DefaultTheme = "calm"
