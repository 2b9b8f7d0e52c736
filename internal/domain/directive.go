package domain

import (
	"strings"

	"splice.dev/pkg/splice/internal/scan"
)

const directiveMarker = "@macro"

// Directive is the action requested by an @macro block comment.
type Directive string

const (
	// Uncomment splices the comment body back into the text as code.
	Uncomment Directive = "uncomment"
	// DeleteFollowingLines removes the comment and the paragraph after it.
	DeleteFollowingLines Directive = "delete-following-lines"
)

// directiveComment is a block comment carrying a directive.
type directiveComment struct {
	Directive Directive
	Span      scan.Span
	Body      []string // lines after the directive line, comment markers kept
}

// findDirectives lists the block comments whose first non-blank inner line
// starts with @macro. Unknown actions are ignored.
func findDirectives(snap *scan.Snapshot) []directiveComment {
	if !strings.Contains(snap.Text, directiveMarker) {
		return nil
	}

	var found []directiveComment

	for _, span := range snap.Spans(scan.BlockComment) {
		raw := snap.Text[span.Start:span.End]
		if !strings.HasPrefix(raw, "/*") || !strings.HasSuffix(raw, "*/") || len(raw) < 4 {
			continue
		}

		lines := strings.Split(raw[2:len(raw)-2], "\n")

		for i, line := range lines {
			content := stripMarker(line)
			if content == "" {
				continue
			}

			action, ok := parseDirective(content)
			if ok {
				found = append(found, directiveComment{
					Directive: action,
					Span:      span,
					Body:      lines[i+1:],
				})
			}

			break
		}
	}

	return found
}

func parseDirective(line string) (Directive, bool) {
	rest, ok := strings.CutPrefix(line, directiveMarker)
	if !ok {
		return "", false
	}

	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}

	switch fields := strings.Fields(rest); {
	case len(fields) == 0, fields[0] == string(Uncomment):
		return Uncomment, true
	case fields[0] == string(DeleteFollowingLines):
		return DeleteFollowingLines, true
	default:
		return "", false
	}
}

// stripMarker trims a comment line down to its content.
func stripMarker(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "*")

	return strings.TrimSpace(line)
}

// applyDirective rewrites the text for the last directive comment and
// reports whether anything changed.
func applyDirective(snap *scan.Snapshot) (string, bool) {
	found := findDirectives(snap)
	if len(found) == 0 {
		return snap.Text, false
	}

	d := found[len(found)-1]
	text := snap.Text

	switch d.Directive {
	case DeleteFollowingLines:
		start := d.Span.Start
		if lineStart := strings.LastIndexByte(text[:start], '\n') + 1; strings.TrimSpace(text[lineStart:start]) == "" {
			start = lineStart
		}

		return text[:start] + text[paragraphEnd(text, d.Span.End):], true
	default:
		return text[:d.Span.Start] + uncomment(d.Body) + text[d.Span.End:], true
	}
}

// uncomment removes the leading "* " of every line and the blank line left
// by the closing delimiter.
func uncomment(lines []string) string {
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if rest, ok := strings.CutPrefix(trimmed, "*"); ok {
			line = strings.TrimPrefix(rest, " ")
		}

		out = append(out, line)
	}

	if n := len(out); n > 0 && strings.TrimSpace(out[n-1]) == "" {
		out = out[:n-1]
	}

	if len(out) > 0 {
		out[0] = strings.TrimLeft(out[0], " \t")
	}

	return strings.Join(out, "\n")
}

// paragraphEnd returns the start of the first blank line after the line
// containing offset, or the end of the text.
func paragraphEnd(text string, offset int) int {
	nl := strings.IndexByte(text[offset:], '\n')
	if nl < 0 {
		return len(text)
	}

	i := offset + nl + 1

	for i < len(text) {
		end := strings.IndexByte(text[i:], '\n')
		if end < 0 {
			end = len(text) - i
		}

		if strings.TrimSpace(text[i:i+end]) == "" {
			return i
		}

		i += end + 1
	}

	return len(text)
}
