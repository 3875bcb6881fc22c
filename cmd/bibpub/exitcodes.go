package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, write failure)
	ExitConfigError = 2 // Configuration error (bad .bibpub.yml, overlapping entry types)
	ExitDataError   = 3 // Data error (unparsable bibliography, missing or repeated markers)
	ExitCheckFailed = 4 // check found problems
)
