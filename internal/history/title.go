package history

import (
	"github.com/set-night/mindchat/internal/config"
)

// TitleFrom returns the leading TitleMaxLen characters of text. The cut is
// a plain character slice with no word-boundary trimming, so titles match
// the ones already shown to users.
func TitleFrom(text string) string {
	runes := []rune(text)
	if len(runes) <= config.TitleMaxLen {
		return text
	}
	return string(runes[:config.TitleMaxLen])
}

// IsPlaceholder reports whether a title was never set.
func IsPlaceholder(title string) bool {
	return title == "" || title == config.PlaceholderTitle
}

// LooksGenerated reports whether title is the placeholder or was derived
// from the session's first question rather than chosen by the server.
func LooksGenerated(title, firstQuestion string) bool {
	if IsPlaceholder(title) {
		return true
	}
	return firstQuestion != "" && title == TitleFrom(firstQuestion)
}
