package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "short", tp.TruncateText("short", 10))
	assert.Equal(t, "short", tp.TruncateText("short", 0))
	assert.Equal(t, "abc"+TruncationMarker, tp.TruncateText("abcdef", 3))

	// "é" is two bytes; a cut inside it backs off to the rune start
	out := tp.TruncateText("aé", 2)
	assert.Equal(t, "a"+TruncationMarker, out)
	assert.True(t, utf8.ValidString(out))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "Hello", tp.SanitizeUTF8("\ufeffHello"))
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xff\xfeb"))
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\x00b"))
	assert.Equal(t, "Grüße", tp.SanitizeUTF8("Grüße"))
}

func TestProcessText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	out := tp.ProcessText("\xff"+strings.Repeat("x", 20), 10)
	assert.Equal(t, strings.Repeat("x", 10)+TruncationMarker, out)
}

func TestPreview(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "héllo", tp.Preview("héllo", 5))
	assert.Equal(t, "hé...", tp.Preview("héllo", 2))
	assert.Equal(t, "héllo", tp.Preview("héllo", 0))
}
