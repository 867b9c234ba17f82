package wire

// Operation identifies the request type.
type Operation uint8

const (
	// OpGet reads the current value of a path.
	OpGet Operation = 1

	// OpSet writes the value of a path.
	OpSet Operation = 2

	// OpSubscribe registers interest in updates for a path.
	OpSubscribe Operation = 3

	// OpUnsubscribe cancels a prior subscription.
	OpUnsubscribe Operation = 4
)

// IsValid returns true for known operations.
func (o Operation) IsValid() bool {
	return o >= OpGet && o <= OpUnsubscribe
}

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpGet:
		return "get"
	case OpSet:
		return "set"
	case OpSubscribe:
		return "subscribe"
	case OpUnsubscribe:
		return "unsubscribe"
	default:
		return "unknown"
	}
}
