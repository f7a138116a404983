// Package diff produces the change blocks embedded in announcements:
// word wrapped field diffs for multi-line ticket fields and version diffs
// for wiki pages.
package diff

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/pmezard/go-difflib/difflib"
)

const (
	// PlainWidth is the wrap column for plain text announcements.
	PlainWidth = 67

	// HTMLWidth is the wrap column for diffs embedded in HTML announcements.
	HTMLWidth = 60

	// Context is the number of unchanged lines kept around each hunk.
	Context = 3
)

// Wrap word-wraps text at width columns. Existing line breaks are kept and
// words longer than width are split. Trailing blanks are trimmed.
func Wrap(text string, width int) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(ansi.Wrap(text, width, ""), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// Lines splits text into lines without terminators.
func Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// Unified returns the unified diff of a and b with the given context, one
// output line per element, including the "---"/"+++" file headers and "@@"
// hunk lines. Identical inputs produce no lines.
func Unified(a, b []string, context int) []string {
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:       terminate(a),
		B:       terminate(b),
		Context: context,
	})
	if err != nil || out == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(out, "\n"), "\n")
}

// Cleanup turns unified diff output into a pure content delta: the file
// header lines are dropped and every hunk line becomes a blank separator.
func Cleanup(lines []string) []string {
	out := make([]string, 0, len(lines))
	inHunks := false
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "@@"):
			inHunks = true
			out = append(out, "")
		case !inHunks && (strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++")):
		default:
			out = append(out, line)
		}
	}
	return out
}

// FieldBlock renders the change of a multi-line field: both values are
// wrapped at width, diffed with Context lines of context and cleaned up.
func FieldBlock(oldValue, newValue string, width int) string {
	lines := Unified(Lines(Wrap(oldValue, width)), Lines(Wrap(newValue, width)), Context)
	return strings.Join(Cleanup(lines), "\n")
}

// VersionHeader returns the block introducing a page diff between
// version-1 and version.
func VersionHeader(name string, version int) string {
	return fmt.Sprintf("Index: %s\n%s\n--- %s (version: %d)\n+++ %s (version: %d)\n",
		name, strings.Repeat("=", 78), name, version-1, name, version)
}

// VersionDiff returns the header followed by the unified diff of the raw
// page texts. Hunk lines are kept, file headers are replaced by the header.
func VersionDiff(name string, version int, oldText, newText string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(VersionHeader(name, version))
	lines := Unified(Lines(oldText), Lines(newText), Context)
	if len(lines) >= 2 && strings.HasPrefix(lines[0], "---") && strings.HasPrefix(lines[1], "+++") {
		lines = lines[2:]
	}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func terminate(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line + "\n"
	}
	return out
}
