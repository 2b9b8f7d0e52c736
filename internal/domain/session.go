package domain

import (
	"context"
	"fmt"
	"log/slog"

	m "splice.dev/pkg/splice/internal/model"
	"splice.dev/pkg/splice/internal/scan"
)

// DefaultMaxCycles bounds the restart cycles of one session.
const DefaultMaxCycles = 10000

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMaxCycles sets the number of restart cycles after which expansion gives
// up with ErrCycleLimit. Values below one keep the default.
func WithMaxCycles(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.maxCycles = n
		}
	}
}

// WithSource names the file being expanded in log records.
func WithSource(path m.Path) SessionOption {
	return func(s *Session) {
		s.source = path
	}
}

// Session expands the macros of one text. It is single-threaded: definitions,
// imports and cached call results live only as long as the session.
type Session struct {
	evaluator   Evaluator
	maxCycles   int
	source      m.Path
	text        string
	imports     *ImportSet
	definitions map[string]string
	cache       map[string]string
	stats       m.Stats
}

// NewSession prepares the expansion of text.
func NewSession(text string, evaluator Evaluator, opts ...SessionOption) *Session {
	s := &Session{
		evaluator:   evaluator,
		maxCycles:   DefaultMaxCycles,
		text:        text,
		imports:     NewImportSet(),
		definitions: make(map[string]string),
		cache:       make(map[string]string),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Stats returns the counters accumulated so far.
func (s *Session) Stats() m.Stats {
	return s.stats
}

// Text returns the current text of the session.
func (s *Session) Text() string {
	return s.text
}

// Expand rewrites the text until no macro definition or call is left.
//
// Every cycle rebuilds the snapshot, collects imports, applies one directive,
// then removes one definition or resolves one call, and starts over. Calls are
// resolved from the last one in the text backwards so inner calls are replaced
// before the outer call is read.
func (s *Session) Expand(ctx context.Context) (string, error) {
	for {
		if s.stats.Cycles >= s.maxCycles {
			return "", fmt.Errorf("%w: %d cycles", ErrCycleLimit, s.maxCycles)
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}

		s.stats.Cycles++

		changed, err := s.cycle(ctx)
		if err != nil {
			return "", err
		}

		if !changed {
			slog.Debug("Expansion finished", "source", s.source, "cycles", s.stats.Cycles)
			return s.text, nil
		}
	}
}

func (s *Session) cycle(ctx context.Context) (bool, error) {
	snap := scan.NewSnapshot(s.text)

	s.stats.Imports += collectImports(snap, s.imports)

	if text, ok := applyDirective(snap); ok {
		s.stats.Directives++
		s.text = text

		return true, nil
	}

	sites := findSites(snap)

	exported, changed, err := s.resolveDefinitions(snap, sites)
	if err != nil || changed {
		return changed, err
	}

	return s.resolveCall(ctx, snap, sites, exported)
}

// resolveDefinitions records every definition and deletes the first one that
// is not exported. It returns the spans of exported definitions, which stay in
// the text and are never read as calls.
func (s *Session) resolveDefinitions(snap *scan.Snapshot, sites []site) ([]scan.Span, bool, error) {
	var exported []scan.Span

	for _, st := range sites {
		if st.Declared || !st.Defines {
			continue
		}

		def, err := readDefinition(snap, st)
		if err != nil {
			return nil, false, fmt.Errorf("read definition %s: %w", st.Name, err)
		}

		if _, ok := s.definitions[def.Name]; !ok {
			s.definitions[def.Name] = def.Block
			s.stats.Definitions++
			slog.Debug("Recorded definition", "source", s.source, "name", def.Name, "exported", def.Exported)
		}

		if def.Exported {
			exported = append(exported, def.Span)
			continue
		}

		s.text = snap.Text[:def.Span.Start] + snap.Text[trailingGap(snap.Text, def.Span.Start, def.Span.End):]

		return nil, true, nil
	}

	return exported, false, nil
}

// resolveCall replaces the last call of the snapshot with its output.
func (s *Session) resolveCall(ctx context.Context, snap *scan.Snapshot, sites []site, exported []scan.Span) (bool, error) {
	for i := len(sites) - 1; i >= 0; i-- {
		st := sites[i]
		if st.Declared || st.Defines || within(exported, st.Start) {
			continue
		}

		args, ok, err := snap.ReadBalanced(st.Paren, '(', ')')
		if err != nil {
			return false, err
		}

		if !ok {
			continue
		}

		call := snap.Text[st.Call:st.Paren] + args

		output, hit := s.cache[call]
		if hit {
			s.stats.CacheHits++
		} else {
			output, err = s.evaluate(ctx, st.Name, call)
			if err != nil {
				return false, err
			}

			s.cache[call] = output
		}

		s.text = snap.Text[:st.Call] + output + snap.Text[st.Call+len(call):]

		return true, nil
	}

	return false, nil
}

func (s *Session) evaluate(ctx context.Context, name, call string) (string, error) {
	code := Snippet(s.imports.String(), s.definitions[name], call)

	slog.Debug("Evaluating call", "source", s.source, "name", name, "call", scan.Excerpt(call))

	output, err := s.evaluator.Execute(ctx, code)
	if err != nil {
		return "", fmt.Errorf("evaluate %s: %w", scan.Excerpt(call), err)
	}

	s.stats.Evaluations++

	return output, nil
}

func within(spans []scan.Span, offset int) bool {
	for _, span := range spans {
		if span.Contains(offset) {
			return true
		}
	}

	return false
}
