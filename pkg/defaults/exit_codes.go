package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0 // Clean exit, no findings
	ExitFindings      = 1 // Scan reported at least one finding
	ExitUserError     = 2 // Invalid arguments, configuration or body
	ExitNetworkError  = 3 // Network/connection failure
	ExitInternalError = 4 // Unexpected internal error
)
