package model

import "errors"

// Fatal error taxonomy. Each sentinel maps to a non-zero process exit;
// wrap with fmt.Errorf("...: %w", Err...) to attach diagnostics.
var (
	// ErrTransport marks a network-level failure reaching the provider.
	ErrTransport = errors.New("transport failure")

	// ErrAccessDenied marks a provider response carrying the configured
	// forbidden-access marker. The raw payload is persisted before this
	// is raised.
	ErrAccessDenied = errors.New("access denied by provider")

	// ErrMalformedPayload marks a payload that failed structural
	// validation or structured decoding.
	ErrMalformedPayload = errors.New("malformed payload")
)
