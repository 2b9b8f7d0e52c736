package model

import "time"

// Evaluation records one sandbox exchange for the debug journal.
type Evaluation struct {
	Source   Path          `msgpack:"source" yaml:"source"`
	Code     string        `msgpack:"code" yaml:"code"`
	Output   string        `msgpack:"output" yaml:"output"`
	Error    string        `msgpack:"error,omitempty" yaml:"error,omitempty"`
	Started  time.Time     `msgpack:"started" yaml:"started"`
	Duration time.Duration `msgpack:"duration" yaml:"duration"`
}
