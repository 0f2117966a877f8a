package model

// ErrorKind classifies failures recorded in page state.
type ErrorKind string

const (
	// ErrValidationSkip marks input below the minimum query length. It is a
	// no-op with cleared results, never an error shown to the user.
	ErrValidationSkip ErrorKind = "VALIDATION_SKIP"

	// ErrNetworkFailure marks a rejected call or a non-success HTTP status.
	ErrNetworkFailure ErrorKind = "NETWORK_FAILURE"

	// ErrNotFound marks an id that resolved to nothing.
	ErrNotFound ErrorKind = "NOT_FOUND"

	// ErrCancelled marks a superseded request. It is dropped silently and
	// never stored.
	ErrCancelled ErrorKind = "CANCELLED"
)

// Failure is the display-only record of a failed call.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (f *Failure) String() string {
	if f == nil {
		return ""
	}
	return string(f.Kind) + ": " + f.Message
}
