package bridge

import "fmt"

// ErrorKind classifies dispatch failures.
type ErrorKind int

const (
	// KindUnknownOperation means the tool name is not in the catalog.
	KindUnknownOperation ErrorKind = iota
	// KindInvalidArgument means an argument failed schema validation.
	KindInvalidArgument
	// KindNotFound means a resolvable reference (a username) does not exist.
	KindNotFound
	// KindUpstream means the store failed; the cause is logged, not surfaced.
	KindUpstream
)

// DispatchError is the bridge's failure envelope. UserMessage is safe to
// return to any transport caller; the wrapped cause is for logs only.
type DispatchError struct {
	Kind   ErrorKind
	Param  string
	Reason string
	cause  error
}

func (e *DispatchError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage(), e.cause)
	}
	return e.UserMessage()
}

func (e *DispatchError) Unwrap() error { return e.cause }

// UserMessage renders the failure without internal fault detail.
func (e *DispatchError) UserMessage() string {
	switch e.Kind {
	case KindUnknownOperation:
		return fmt.Sprintf("unknown tool %q", e.Reason)
	case KindInvalidArgument:
		return fmt.Sprintf("invalid argument %q: %s", e.Param, e.Reason)
	case KindNotFound:
		return e.Reason
	default:
		return "the task database is currently unavailable"
	}
}

func errUnknownOperation(name string) *DispatchError {
	return &DispatchError{Kind: KindUnknownOperation, Reason: name}
}

func errInvalidArgument(param, reason string) *DispatchError {
	return &DispatchError{Kind: KindInvalidArgument, Param: param, Reason: reason}
}

func errNotFound(reason string) *DispatchError {
	return &DispatchError{Kind: KindNotFound, Reason: reason}
}

func errUpstream(cause error) *DispatchError {
	return &DispatchError{Kind: KindUpstream, cause: cause}
}
