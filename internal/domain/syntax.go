package domain

import (
	"fmt"
	"regexp"
	"strings"

	"splice.dev/pkg/splice/internal/scan"
)

// macroSite matches a macro name followed by its opening paren, together with
// the keywords that turn it into a definition or a type-only declaration.
// Keywords must share the line with the name so a comment ending in one
// cannot swallow the macro on the next line.
var macroSite = regexp.MustCompile(
	`(export[ \t]+)?(async[ \t]+)?(declare[ \t]+)?(function[ \t]*\*?[ \t]*)?` +
		`((?:[A-Za-z_$][\w$]*\.)*)(\$\w*\$)(<[^\n]*?>)?\(`,
)

const (
	groupExport   = 1
	groupDeclare  = 3
	groupFunction = 4
	groupPrefix   = 5
	groupName     = 6
)

// site is one macro-shaped match in a snapshot. Offsets are byte offsets.
type site struct {
	Start    int // first byte of the match, keywords included
	Call     int // first byte of the prefixed name
	Paren    int // the opening paren
	Name     string
	Exported bool
	Declared bool
	Defines  bool
}

// findSites lists macro sites whose first byte and opening paren are code.
// Lookalikes inside strings, comments or regex literals are dropped.
func findSites(snap *scan.Snapshot) []site {
	if !strings.Contains(snap.Text, "$") {
		return nil
	}

	var sites []site

	for _, loc := range macroSite.FindAllStringSubmatchIndex(snap.Text, -1) {
		s := site{
			Start:    loc[0],
			Call:     loc[2*groupPrefix],
			Paren:    loc[1] - 1,
			Name:     snap.Text[loc[2*groupName]:loc[2*groupName+1]],
			Exported: loc[2*groupExport] >= 0,
			Declared: loc[2*groupDeclare] >= 0,
			Defines:  loc[2*groupFunction] >= 0,
		}

		if !snap.IsCode(s.Call) || !snap.IsCode(s.Paren) {
			continue
		}

		// keywords inside a literal or comment do not make a definition
		if !snap.IsCode(s.Start) {
			s.Start = s.Call
			s.Exported, s.Declared, s.Defines = false, false, false
		}

		sites = append(sites, s)
	}

	return sites
}

// statementStart returns the offset just after the nearest newline or
// semicolon before offset.
func statementStart(text string, offset int) int {
	return strings.LastIndexAny(text[:offset], "\n;") + 1
}

// definition is a function-shaped macro block found in a snapshot.
type definition struct {
	Name     string
	Block    string
	Span     scan.Span
	Exported bool
}

// readDefinition reads the parameter list with the paren matcher, then the
// body with the brace matcher. The block runs from the statement boundary to
// the closing brace.
func readDefinition(snap *scan.Snapshot, s site) (definition, error) {
	params, _, err := snap.ReadBalanced(s.Paren, '(', ')')
	if err != nil {
		return definition{}, err
	}

	open := -1

	for i := s.Paren + len(params); i < len(snap.Text); i++ {
		if snap.Text[i] == '{' && snap.IsCode(i) {
			open = i
			break
		}
	}

	if open < 0 {
		return definition{}, fmt.Errorf("%w: %s", scan.ErrUnfinished, scan.Excerpt(snap.Text[s.Start:]))
	}

	body, _, err := snap.ReadBalanced(open, '{', '}')
	if err != nil {
		return definition{}, err
	}

	start := statementStart(snap.Text, s.Start)
	end := open + len(body)

	return definition{
		Name:     s.Name,
		Block:    snap.Text[start:end],
		Span:     scan.Span{Start: start, End: end},
		Exported: s.Exported,
	}, nil
}

// trailingGap returns the end of the whitespace that is removed together with
// a deleted block: trailing blanks, its line break and up to two blank lines.
// A block that starts mid-line keeps the line break.
func trailingGap(text string, start, end int) int {
	i := skipBlanks(text, end)
	if i >= len(text) || text[i] != '\n' {
		return i
	}

	if start > 0 && text[start-1] != '\n' {
		return i
	}

	i++

	for range 2 {
		j := skipBlanks(text, i)
		if j >= len(text) || text[j] != '\n' {
			break
		}

		i = j + 1
	}

	return i
}

func skipBlanks(text string, i int) int {
	for i < len(text) && (text[i] == ' ' || text[i] == '\t' || text[i] == '\r') {
		i++
	}

	return i
}
