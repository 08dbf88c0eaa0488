package entities

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", TruncateMessage("short"))

	cyrillic := strings.Repeat("ж", MaxStatusMessage+5)
	got := TruncateMessage(cyrillic)
	assert.Equal(t, MaxStatusMessage, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))

	exact := strings.Repeat("a", MaxStatusMessage)
	assert.Equal(t, exact, TruncateMessage(exact))
}
