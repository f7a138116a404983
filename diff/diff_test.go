package diff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog and keeps running far away"

	wrapped := Wrap(text, 20)

	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), 20, "line %q too long", line)
		assert.Equal(t, strings.TrimRight(line, " "), line)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(wrapped))
}

func TestWrap_KeepsLineBreaks(t *testing.T) {
	wrapped := Wrap("first\r\nsecond", PlainWidth)
	assert.Equal(t, "first\nsecond", wrapped)
}

func TestUnified_Identical(t *testing.T) {
	assert.Empty(t, Unified([]string{"a", "b"}, []string{"a", "b"}, Context))
}

func TestUnified_Headers(t *testing.T) {
	lines := Unified([]string{"a"}, []string{"b"}, Context)
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "---"))
	assert.True(t, strings.HasPrefix(lines[1], "+++"))
	assert.Equal(t, "@@ -1 +1 @@", lines[2])
	assert.Equal(t, []string{"-a", "+b"}, lines[3:])
}

func TestCleanup(t *testing.T) {
	in := []string{"--- ", "+++ ", "@@ -1,2 +1,2 @@", " same", "--- removed dashes", "+new"}

	assert.Equal(t, []string{"", " same", "--- removed dashes", "+new"}, Cleanup(in))
}

func TestFieldBlock(t *testing.T) {
	block := FieldBlock("line1\nline2", "line1\nline3", PlainWidth)
	lines := strings.Split(block, "\n")

	assert.Contains(t, lines, "-line2")
	assert.Contains(t, lines, "+line3")
	assert.Contains(t, lines, " line1")
	for _, line := range lines {
		assert.False(t, strings.HasPrefix(line, "---"), line)
		assert.False(t, strings.HasPrefix(line, "+++"), line)
		assert.False(t, strings.HasPrefix(line, "@@"), line)
	}
}

func TestFieldBlock_WrapsBeforeDiffing(t *testing.T) {
	long := strings.Repeat("word ", 30)
	block := FieldBlock(long+"\nend", long+"\nfinish", HTMLWidth)

	for _, line := range strings.Split(block, "\n") {
		// one leading marker column on top of the wrap width
		assert.LessOrEqual(t, len(line), HTMLWidth+1)
	}
	assert.Contains(t, block, "-end")
	assert.Contains(t, block, "+finish")
}

func TestVersionHeader(t *testing.T) {
	want := "Index: WikiStart\n" +
		"==============================================================================\n" +
		"--- WikiStart (version: 2)\n" +
		"+++ WikiStart (version: 3)\n"

	assert.Equal(t, want, VersionHeader("WikiStart", 3))
}

func TestVersionDiff(t *testing.T) {
	var before, after []string
	for i := 1; i <= 10; i++ {
		before = append(before, fmt.Sprintf("line %d", i))
		after = append(after, fmt.Sprintf("line %d", i))
	}
	after[4] = "line five"

	out := VersionDiff("WikiStart", 3, strings.Join(before, "\n"), strings.Join(after, "\n"))

	assert.True(t, strings.HasPrefix(out, "\n"+VersionHeader("WikiStart", 3)))
	body := strings.TrimPrefix(out, "\n"+VersionHeader("WikiStart", 3))
	assert.Equal(t, strings.Join([]string{
		"@@ -2,7 +2,7 @@",
		" line 2",
		" line 3",
		" line 4",
		"-line 5",
		"+line five",
		" line 6",
		" line 7",
		" line 8",
	}, "\n")+"\n", body)
}
