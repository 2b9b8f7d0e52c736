package scan

// Tag classifies a single byte of source text.
type Tag uint8

const (
	// Code is anything outside literals and comments.
	Code Tag = iota
	// SingleQuoted is a '...' string literal, delimiters included.
	SingleQuoted
	// DoubleQuoted is a "..." string literal, delimiters included.
	DoubleQuoted
	// TemplateQuoted is the literal part of a `...` template, including the
	// ${ and } delimiters of its interpolations.
	TemplateQuoted
	// LineComment runs from // up to, not including, the newline.
	LineComment
	// BlockComment runs from /* through */.
	BlockComment
	// Regex is a regular-expression literal found by FindRegexes.
	Regex
)

var tagNames = [...]string{
	Code:           "code",
	SingleQuoted:   "single-quoted",
	DoubleQuoted:   "double-quoted",
	TemplateQuoted: "template-quoted",
	LineComment:    "line-comment",
	BlockComment:   "block-comment",
	Regex:          "regex",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}

	return "unknown"
}
