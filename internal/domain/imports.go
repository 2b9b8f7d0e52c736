package domain

import (
	"regexp"
	"strings"

	"splice.dev/pkg/splice/internal/scan"
)

var (
	importStatement = regexp.MustCompile(
		`(?m)^[ \t]*(import[\s{*][^;'"]*?['"][^'"\n]*['"];?)`,
	)
	requireStatement = regexp.MustCompile(
		`(?m)^[ \t]*((?:const|let|var)\s+[^=;\n]+?=\s*require\(\s*['"][^'"\n]+['"]\s*\);?)`,
	)
)

// ImportSet collects import and require statements. Adding a statement twice
// is a no-op; String renders them in first-seen order.
type ImportSet struct {
	seen       map[string]struct{}
	statements []string
}

// NewImportSet returns an empty set.
func NewImportSet() *ImportSet {
	return &ImportSet{seen: make(map[string]struct{})}
}

// Add records a statement and reports whether it was new.
func (s *ImportSet) Add(statement string) bool {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return false
	}

	if _, ok := s.seen[statement]; ok {
		return false
	}

	s.seen[statement] = struct{}{}
	s.statements = append(s.statements, statement)

	return true
}

// Len returns the number of distinct statements.
func (s *ImportSet) Len() int {
	return len(s.statements)
}

// String joins the statements with newlines.
func (s *ImportSet) String() string {
	return strings.Join(s.statements, "\n")
}

// collectImports adds every import or require statement that starts in code.
// It returns how many statements were new.
func collectImports(snap *scan.Snapshot, set *ImportSet) int {
	added := 0

	for _, pattern := range []*regexp.Regexp{importStatement, requireStatement} {
		for _, loc := range pattern.FindAllStringSubmatchIndex(snap.Text, -1) {
			if !snap.IsCode(loc[2]) {
				continue
			}

			if set.Add(snap.Text[loc[2]:loc[3]]) {
				added++
			}
		}
	}

	return added
}
