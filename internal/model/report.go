package model

import "time"

// Stats counts the work done by one expansion session.
type Stats struct {
	Cycles      int
	Definitions int
	Evaluations int
	CacheHits   int
	Directives  int
	Imports     int
}

// Status represents the outcome of expanding one file.
type Status int

const (
	// Expanded indicates the output file was written.
	Expanded Status = iota
	// Unchanged indicates the expansion produced the input text verbatim.
	Unchanged
	// Failed indicates the session aborted and nothing was written.
	Failed
	// Checked indicates a dry run that wrote nothing.
	Checked
)

func (s Status) String() string {
	switch s {
	case Expanded:
		return "expanded"
	case Unchanged:
		return "unchanged"
	case Failed:
		return "failed"
	case Checked:
		return "checked"
	default:
		return "unknown"
	}
}

// Report represents the result of expanding one macro file.
type Report struct {
	Source   Path
	Target   Path
	Status   Status
	Stats    Stats
	Diff     string // unified diff of input and output, dry runs only
	Duration time.Duration
	Err      error
}
