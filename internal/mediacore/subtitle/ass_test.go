package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventFormatFindsTextColumn(t *testing.T) {
	codecPrivate := []byte("[Script Info]\nScriptType: v4.00+\n\n[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	columns, textIdx, ok := ParseEventFormat(codecPrivate)
	require.True(t, ok)
	require.Len(t, columns, 10)
	assert.Equal(t, "Text", columns[textIdx])
	assert.Equal(t, 9, textIdx)
}

func TestParseEventFormatMissingReturnsFalse(t *testing.T) {
	_, _, ok := ParseEventFormat([]byte("[Script Info]\nno format line here\n"))
	assert.False(t, ok)
}

func TestProjectTextPreservesCommasInsideTextColumn(t *testing.T) {
	columns := []string{"Layer", "Start", "End", "Style", "Name", "Text"}
	line := "0,0:00:01.00,0:00:03.00,Default,,Hello, world, how are you?"
	text := ProjectText(line, columns, 5)
	assert.Equal(t, "Hello, world, how are you?", text)
}

func TestProjectTextEmptyColumnsReturnsLineVerbatim(t *testing.T) {
	assert.Equal(t, "just text", ProjectText("just text", nil, 0))
}
