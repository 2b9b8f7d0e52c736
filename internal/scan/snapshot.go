package scan

import (
	"errors"
	"fmt"
)

// ErrUnfinished is returned when a balanced group runs off the end of the text.
var ErrUnfinished = errors.New("unfinished call or block")

const excerptLimit = 80

// Snapshot is the classification of one immutable text. It is rebuilt from
// scratch whenever the text changes.
type Snapshot struct {
	Text    string
	Regexes RegexIndex
	Tags    []Tag
}

// NewSnapshot locates regex literals and classifies every byte of text.
func NewSnapshot(text string) *Snapshot {
	regexes := FindRegexes(text)
	tags := make([]Tag, len(text))

	for offset, tag := range Classify(text, regexes) {
		tags[offset] = tag
	}

	return &Snapshot{
		Text:    text,
		Regexes: regexes,
		Tags:    tags,
	}
}

// TagAt returns the tag at offset. Out-of-range offsets report Code.
func (s *Snapshot) TagAt(offset int) Tag {
	if offset < 0 || offset >= len(s.Tags) {
		return Code
	}

	return s.Tags[offset]
}

// IsCode reports whether offset is inside the text and classified as code.
func (s *Snapshot) IsCode(offset int) bool {
	return offset >= 0 && offset < len(s.Tags) && s.Tags[offset] == Code
}

// Spans returns the maximal runs of bytes classified as tag.
func (s *Snapshot) Spans(tag Tag) []Span {
	var spans []Span

	for i := 0; i < len(s.Tags); {
		if s.Tags[i] != tag {
			i++
			continue
		}

		j := i
		for j < len(s.Tags) && s.Tags[j] == tag {
			j++
		}

		spans = append(spans, Span{Start: i, End: j})
		i = j
	}

	return spans
}

// ReadBalanced reads from start up to and including the close byte that
// balances the first open byte. Only delimiters classified as code count;
// everything else is carried verbatim.
//
// It reports ok == false when start is not code, which means the lookalike
// sits inside a literal or comment. Reaching the end of the text before the
// group is balanced returns ErrUnfinished.
func (s *Snapshot) ReadBalanced(start int, open, closing byte) (string, bool, error) {
	if !s.IsCode(start) {
		return "", false, nil
	}

	depth := 0

	for i := start; i < len(s.Text); i++ {
		if s.Tags[i] != Code {
			continue
		}

		switch s.Text[i] {
		case open:
			depth++
		case closing:
			if depth == 0 {
				continue
			}

			depth--
			if depth == 0 {
				return s.Text[start : i+1], true, nil
			}
		}
	}

	return "", false, fmt.Errorf("%w: %s", ErrUnfinished, Excerpt(s.Text[start:]))
}

// Excerpt shortens text for error messages.
func Excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLimit {
		return text
	}

	return string(runes[:excerptLimit]) + "..."
}
