package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing config, missing API key)
	ExitDataError   = 3 // Data error (malformed input, unreadable report)
	ExitBusy        = 4 // Another processing run holds the store
)
