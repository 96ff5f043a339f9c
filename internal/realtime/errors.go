package realtime

import "errors"

// Session start and protocol failures. Init-path errors wrap one of the
// first three so callers can branch on the failing stage.
var (
	// ErrCredential: the token exchange failed or returned a malformed payload.
	ErrCredential = errors.New("credential exchange failed")

	// ErrMediaAccess: the capture device could not be acquired.
	ErrMediaAccess = errors.New("audio capture unavailable")

	// ErrNegotiation: the SDP exchange failed or the local offer had no audio section.
	ErrNegotiation = errors.New("negotiation failed")

	// ErrNotReady: an operation was attempted before the session was configured.
	ErrNotReady = errors.New("session not ready")

	// ErrSessionActive: Init was called while a session is already in flight.
	ErrSessionActive = errors.New("session already active")
)
