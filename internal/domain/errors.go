package domain

import "errors"

var (
	// ErrNotMacroFile is returned for inputs not named name.macro.ext.
	ErrNotMacroFile = errors.New("not a macro file")
	// ErrEvaluation wraps a failure reported by, or while talking to, the sandbox.
	ErrEvaluation = errors.New("evaluation failed")
	// ErrCycleLimit is returned when expansion does not reach a fixpoint.
	ErrCycleLimit = errors.New("expansion cycle limit reached")
)
