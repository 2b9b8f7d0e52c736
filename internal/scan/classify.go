package scan

import "iter"

// Classify lazily yields the tag of every byte of text, in order, together
// with its offset. regexes must come from FindRegexes over the same text.
//
// Classification never fails: unterminated literals and comments simply run
// to the end of their line or of the text.
func Classify(text string, regexes RegexIndex) iter.Seq2[int, Tag] {
	return func(yield func(int, Tag) bool) {
		c := &classifier{
			cursor:  NewCursor(text),
			regexes: regexes,
			yield:   yield,
		}
		c.code(false)
	}
}

// classifier walks one cursor. Every method returns false once the consumer
// has stopped iterating, and callers must unwind immediately.
type classifier struct {
	cursor  *Cursor
	regexes RegexIndex
	yield   func(int, Tag) bool
}

// take tags the byte under the cursor and moves past it.
func (c *classifier) take(tag Tag) bool {
	if !c.yield(c.cursor.Offset, tag) {
		return false
	}

	c.cursor.Advance()

	return true
}

// code classifies top-level text. When nested is set it classifies the body
// of a template interpolation and returns with the cursor on the closing brace.
func (c *classifier) code(nested bool) bool {
	cur := c.cursor
	depth := 1

	for !cur.EOF() {
		ch := cur.Peek()

		switch {
		case ch == '`':
			if !c.template() {
				return false
			}

			continue
		case ch == '\'':
			if !c.quoted(SingleQuoted, '\'') {
				return false
			}

			continue
		case ch == '"':
			if !c.quoted(DoubleQuoted, '"') {
				return false
			}

			continue
		case cur.HasPrefix("/*"):
			if !c.blockComment() {
				return false
			}

			continue
		case cur.HasPrefix("//"):
			if !c.lineComment() {
				return false
			}

			continue
		}

		if span, ok := c.regexes.At(cur.Offset); ok {
			if !c.until(Regex, span.End) {
				return false
			}

			continue
		}

		if nested {
			switch ch {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return true
				}
			}
		}

		if !c.take(Code) {
			return false
		}
	}

	return true
}

func (c *classifier) template() bool {
	cur := c.cursor

	if !c.take(TemplateQuoted) {
		return false
	}

	for !cur.EOF() {
		if !cur.Escaped() && cur.HasPrefix("${") {
			if !c.take(TemplateQuoted) || !c.take(TemplateQuoted) {
				return false
			}

			if !c.code(true) {
				return false
			}

			if cur.EOF() {
				return true
			}

			// closing brace of the interpolation
			if !c.take(TemplateQuoted) {
				return false
			}

			continue
		}

		if !cur.Escaped() && cur.Peek() == '`' {
			return c.take(TemplateQuoted)
		}

		if !c.take(TemplateQuoted) {
			return false
		}
	}

	return true
}

// quoted classifies a single-line string. A newline ends it without being
// consumed so the top level sees the newline as code.
func (c *classifier) quoted(tag Tag, quote byte) bool {
	cur := c.cursor

	if !c.take(tag) {
		return false
	}

	for !cur.EOF() {
		ch := cur.Peek()
		if ch == '\n' {
			return true
		}

		if ch == quote && !cur.Escaped() {
			return c.take(tag)
		}

		if !c.take(tag) {
			return false
		}
	}

	return true
}

func (c *classifier) blockComment() bool {
	cur := c.cursor
	start := cur.Offset

	if !c.take(BlockComment) || !c.take(BlockComment) {
		return false
	}

	for !cur.EOF() {
		// the star of the opener cannot close the comment
		if cur.Peek() == '/' && cur.At(cur.Offset-1) == '*' && cur.Offset-1 > start+1 {
			return c.take(BlockComment)
		}

		if !c.take(BlockComment) {
			return false
		}
	}

	return true
}

func (c *classifier) lineComment() bool {
	cur := c.cursor

	for !cur.EOF() && cur.Peek() != '\n' {
		if !c.take(LineComment) {
			return false
		}
	}

	return true
}

func (c *classifier) until(tag Tag, end int) bool {
	cur := c.cursor

	for !cur.EOF() && cur.Offset < end {
		if !c.take(tag) {
			return false
		}
	}

	return true
}
