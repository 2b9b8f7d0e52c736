package scan

import (
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
)

// Span is a half-open [Start, End) byte range.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// RegexIndex is a sorted list of non-overlapping regex literal spans.
type RegexIndex []Span

// At returns the span containing offset, if any.
func (ix RegexIndex) At(offset int) (Span, bool) {
	i := sort.Search(len(ix), func(i int) bool { return ix[i].End > offset })
	if i < len(ix) && ix[i].Start <= offset {
		return ix[i], true
	}

	return Span{}, false
}

// regexCandidate finds slash-delimited literals in positions where an
// expression may start. The literal itself is captured; the trailing context
// is a lookahead so it stays available to the next candidate.
var regexCandidate = regexp2.MustCompile(
	`(?:^|:\s*|=\s*|\(\s*|return\s*)`+
		`(?<literal>/(?<body>(?![*+?])(?:[^\r\n\[/\\]|\\.|\[(?:[^\r\n\]\\]|\\.)*\])+)/(?<flags>[gimsuy]{0,6}))`+
		`(?=$|\s*[.,;)])`,
	regexp2.Multiline,
)

// FindRegexes heuristically locates regular-expression literals in raw text.
//
// A candidate only counts when its body compiles as an ECMAScript regular
// expression with valid flags. The result is best effort: a division in an
// unusual position can still be mistaken for a literal, and the reverse.
func FindRegexes(text string) RegexIndex {
	if !strings.Contains(text, "/") {
		return nil
	}

	runes := []rune(text)
	offsets := runeOffsets(text, len(runes))

	var spans RegexIndex

	for start := 0; start < len(runes); {
		match, err := regexCandidate.FindRunesMatchStartingAt(runes, start)
		if err != nil || match == nil {
			break
		}

		literal := match.GroupByName("literal")
		body := match.GroupByName("body")
		flags := match.GroupByName("flags")

		if !compilesAsRegex(body.String(), flags.String()) {
			start = literal.Index + 1
			continue
		}

		end := literal.Index + literal.Length
		spans = append(spans, Span{Start: offsets[literal.Index], End: offsets[end]})
		start = end
	}

	return spans
}

// compilesAsRegex mirrors what a JavaScript engine would accept for /body/flags.
func compilesAsRegex(body, flags string) bool {
	seen := make(map[rune]bool, len(flags))
	for _, flag := range flags {
		if seen[flag] {
			return false
		}

		seen[flag] = true
	}

	options := regexp2.RegexOptions(regexp2.ECMAScript)
	if seen['i'] {
		options |= regexp2.IgnoreCase
	}

	if seen['m'] {
		options |= regexp2.Multiline
	}

	_, err := regexp2.Compile(body, options)

	return err == nil
}

// runeOffsets maps every rune index of text (plus the end) to its byte offset.
func runeOffsets(text string, count int) []int {
	offsets := make([]int, 0, count+1)
	for i := range text {
		offsets = append(offsets, i)
	}

	return append(offsets, len(text))
}
