package protocol

const (
	// Connection/handshake.
	ErrAuthFailed    = "E_AUTH_FAILED"
	ErrProtoBadHello = "E_PROTO_BAD_HELLO"

	// Message layer.
	ErrBadRequest     = "E_BAD_REQUEST"
	ErrUnknownSession = "E_UNKNOWN_SESSION"
	ErrInternal       = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrAuthFailed:     {},
	ErrProtoBadHello:  {},
	ErrBadRequest:     {},
	ErrUnknownSession: {},
	ErrInternal:       {},
}

// IsKnownCode reports whether code is one of the error codes the
// server may put in an error-msg frame.
func IsKnownCode(code string) bool {
	_, ok := knownCodes[code]
	return ok
}
