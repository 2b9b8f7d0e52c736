// Package scan classifies source text into lexical spans (code, quoted
// literals, comments, regex literals) so macro matching only ever fires on
// code.
package scan

import "strings"

// Cursor is a monotonically advancing byte position over an immutable text.
// A Cursor belongs to exactly one active scan; separate scans of the same
// text must use separate cursors.
type Cursor struct {
	Text   string
	Offset int
}

// NewCursor creates a cursor positioned at the start of text.
func NewCursor(text string) *Cursor {
	return &Cursor{Text: text}
}

// EOF reports whether the cursor is past the last byte.
func (c *Cursor) EOF() bool {
	return c.Offset >= len(c.Text)
}

// Peek returns the byte under the cursor, or 0 at EOF.
func (c *Cursor) Peek() byte {
	return c.At(c.Offset)
}

// At returns the byte at offset i, or 0 when i is out of range.
func (c *Cursor) At(i int) byte {
	if i < 0 || i >= len(c.Text) {
		return 0
	}

	return c.Text[i]
}

// HasPrefix reports whether the text at the cursor starts with s.
func (c *Cursor) HasPrefix(s string) bool {
	return strings.HasPrefix(c.Text[min(c.Offset, len(c.Text)):], s)
}

// Escaped reports whether the byte under the cursor is escaped: it follows a
// single backslash, not an escaped backslash.
func (c *Cursor) Escaped() bool {
	return c.At(c.Offset-1) == '\\' && c.At(c.Offset-2) != '\\'
}

// Advance moves the cursor one byte forward.
func (c *Cursor) Advance() {
	c.Offset++
}
