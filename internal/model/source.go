// Package model defines the data structures shared by the macro workflow.
package model

// Path represents a file system path.
type Path string

// MacroSuffix marks a file as a macro source: name.macro.ext.
const MacroSuffix = ".macro"

// File represents a macro source file and its expansion target.
type File struct {
	Source Path
	Target Path
	Ext    string
}

// Listing summarizes the macro sites of one file without evaluating them.
type Listing struct {
	Source      Path
	Definitions int
	Calls       int
	Imports     int
	Directives  int
	Err         error
}
