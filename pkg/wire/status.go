package wire

import "fmt"

// Status is the broker's result code for a request.
type Status uint8

const (
	// StatusOK indicates success.
	StatusOK Status = 0

	// StatusUnknownPath indicates the path does not exist on the broker.
	StatusUnknownPath Status = 1

	// StatusPermissionDenied indicates the broker rejected the operation.
	StatusPermissionDenied Status = 2

	// StatusInvalidValue indicates the value was rejected for the path.
	StatusInvalidValue Status = 3

	// StatusUnavailable indicates the broker cannot serve the request now.
	StatusUnavailable Status = 4

	// StatusInternal indicates an internal broker error.
	StatusInternal Status = 5
)

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusOK
}

// StatusError represents an error response from the broker.
type StatusError struct {
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("broker rejected request: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("broker rejected request: %s", e.Status)
}

// ResponseError converts a failed response into a StatusError.
// It returns nil for successful responses.
func ResponseError(resp *Response) error {
	if resp.IsSuccess() {
		return nil
	}
	e := &StatusError{Status: resp.Status}
	if resp.Error != nil {
		e.Message = resp.Error.Message
	}
	return e
}

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusUnknownPath:
		return "UNKNOWN_PATH"
	case StatusPermissionDenied:
		return "PERMISSION_DENIED"
	case StatusInvalidValue:
		return "INVALID_VALUE"
	case StatusUnavailable:
		return "UNAVAILABLE"
	case StatusInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}
