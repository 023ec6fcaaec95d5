package tlv

import "fmt"

// ErrorCode is a pairing protocol error carried in TypeError.
type ErrorCode byte

const (
	ErrorUnknown        ErrorCode = 0x01
	ErrorAuthentication ErrorCode = 0x02
	ErrorBackoff        ErrorCode = 0x03
	ErrorMaxPeers       ErrorCode = 0x04
	ErrorMaxTries       ErrorCode = 0x05
	ErrorUnavailable    ErrorCode = 0x06
	ErrorBusy           ErrorCode = 0x07
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorUnknown:
		return "unknown"
	case ErrorAuthentication:
		return "authentication"
	case ErrorBackoff:
		return "backoff"
	case ErrorMaxPeers:
		return "max peers"
	case ErrorMaxTries:
		return "max tries"
	case ErrorUnavailable:
		return "unavailable"
	case ErrorBusy:
		return "busy"
	default:
		return fmt.Sprintf("error 0x%02x", byte(c))
	}
}

// ErrorContainer is a protocol-level failure: it is returned as an error by
// endpoint logic and rendered as a regular TLV8 response.
type ErrorContainer struct {
	State byte
	Code  ErrorCode
}

// NewError creates an ErrorContainer for the response state.
func NewError(state byte, code ErrorCode) *ErrorContainer {
	return &ErrorContainer{State: state, Code: code}
}

func (e *ErrorContainer) Error() string {
	return fmt.Sprintf("tlv: %s error at state M%d", e.Code, e.State)
}

// Encode renders the state and error items.
func (e *ErrorContainer) Encode() []byte {
	return New().
		AppendByte(TypeState, e.State).
		AppendByte(TypeError, byte(e.Code)).
		Encode()
}
