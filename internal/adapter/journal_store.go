package adapter

import (
	"context"
	"fmt"
	"sync"

	m "splice.dev/pkg/splice/internal/model"
	"splice.dev/pkg/splice/pkg"
)

// JournalStore persists the sandbox exchanges of debug builds.
type JournalStore interface {
	Append(ctx context.Context, entry m.Evaluation) error
	Load(ctx context.Context) ([]m.Evaluation, error)
	Close() error
}

// SpillJournalStore keeps the journal in a msgpack spill file. The file is
// opened on first use, so commands that never journal never touch it.
type SpillJournalStore struct {
	path m.Path

	once  sync.Once
	spill pkg.FileSpill[m.Evaluation]
	err   error
}

// NewSpillJournalStore returns a journal kept at path. An empty path keeps
// the journal in a temporary file.
func NewSpillJournalStore(path m.Path) *SpillJournalStore {
	return &SpillJournalStore{path: path}
}

func (s *SpillJournalStore) open() (pkg.FileSpill[m.Evaluation], error) {
	s.once.Do(func() {
		if s.path == "" {
			s.spill, s.err = pkg.NewFileSpill[m.Evaluation]()
		} else {
			s.spill, s.err = pkg.OpenFileSpill[m.Evaluation](string(s.path))
		}

		if s.err != nil {
			s.err = fmt.Errorf("open journal: %w", s.err)
		}
	})

	return s.spill, s.err
}

// Append records one evaluation. It still records when ctx has ended, so
// timed-out exchanges show up in the journal.
func (s *SpillJournalStore) Append(_ context.Context, entry m.Evaluation) error {
	spill, err := s.open()
	if err != nil {
		return err
	}

	return spill.Append(entry)
}

// Load returns every recorded evaluation in append order.
func (s *SpillJournalStore) Load(ctx context.Context) ([]m.Evaluation, error) {
	spill, err := s.open()
	if err != nil {
		return nil, err
	}

	entries := make([]m.Evaluation, 0, spill.Len())

	err = spill.Range(func(_ uint64, entry m.Evaluation) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		entries = append(entries, entry)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load journal: %w", err)
	}

	return entries, nil
}

// Close releases the journal file if it was opened.
func (s *SpillJournalStore) Close() error {
	if s.spill == nil {
		return nil
	}

	return s.spill.Close()
}
