package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "Take a slow breath.", "Take a slow breath."},
		{"comparison is not html", "2 < 3 always", "2 < 3 always"},
		{"line break", "first line<br>second line", "first line\nsecond line"},
		{"paragraphs", "<p>Hello <b>there</b></p><p>How are you?</p>", "Hello there\n\nHow are you?"},
		{"list", "<p>Try this:</p><ul><li>Walk</li><li>Drink water</li></ul>", "Try this:\n\n• Walk\n• Drink water"},
		{"script dropped", "<p>Hi</p><script>alert(1)</script>", "Hi"},
		{"entities decoded", "<p>Tom &amp; Jerry</p>", "Tom & Jerry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText(tt.in))
		})
	}
}
