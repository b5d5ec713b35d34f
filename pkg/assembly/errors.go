package assembly

import "errors"

// assemblyError tags a failure with the agent.error.v1 cause category §4.4
// names explicitly: ConfigMissing, GraphLoadFailed, PublishFailed, Timeout,
// Internal.
type assemblyError struct {
	cause string
	err   error
}

func (e *assemblyError) Error() string { return e.err.Error() }
func (e *assemblyError) Unwrap() error { return e.err }

func errConfigMissing(err error) error    { return &assemblyError{cause: "ConfigMissing", err: err} }
func errGraphLoadFailed(err error) error  { return &assemblyError{cause: "GraphLoadFailed", err: err} }
func errPublishFailed(err error) error    { return &assemblyError{cause: "PublishFailed", err: err} }
func errTimeout(err error) error          { return &assemblyError{cause: "Timeout", err: err} }

// causeOf extracts the cause category from err, defaulting to "Internal"
// for anything not explicitly classified.
func causeOf(err error) string {
	var ae *assemblyError
	if errors.As(err, &ae) {
		return ae.cause
	}
	return "Internal"
}
