// Package subtitle holds the pure, I/O-free helpers the MKV demuxer uses
// to turn ASS/SSA dialogue lines and PGS segments into subtitle cues.
package subtitle

import "strings"

// ParseEventFormat parses the `Format:` line out of an ASS/SSA
// CodecPrivate blob, returning the declared column names and the index of
// the column named "Text" (the last column when none is so named; it may
// itself contain commas, so callers must split with a bounded count rather
// than naively on ",").
func ParseEventFormat(codecPrivate []byte) (columns []string, textIdx int, ok bool) {
	for _, line := range strings.Split(string(codecPrivate), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "Format:") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "Format:"))
		parts := strings.Split(rest, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		textIdx = -1
		for i, p := range parts {
			if p == "Text" {
				textIdx = i
			}
		}
		if textIdx == -1 {
			textIdx = len(parts) - 1
		}
		return parts, textIdx, true
	}
	return nil, 0, false
}

// ProjectText extracts the Text column from one ASS/SSA dialogue line
// body (the event payload after the "Dialogue:" / "Comment:" prefix has
// already been stripped), splitting on exactly len(columns)-1 commas so
// that commas inside the Text column itself are preserved.
func ProjectText(line string, columns []string, textIdx int) string {
	if len(columns) == 0 {
		return line
	}
	parts := strings.SplitN(line, ",", len(columns))
	if textIdx < 0 || textIdx >= len(parts) {
		return ""
	}
	return parts[textIdx]
}
