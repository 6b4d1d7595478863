package google

import "fmt"

// RejectionError reports which pipeline stage refused the request. It
// unwraps to a models sentinel that selects the HTTP status.
type RejectionError struct {
	Stage   int
	Name    string
	Kind    error
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("google sign-in rejected at stage %d (%s): %s", e.Stage, e.Name, e.Message)
}

func (e *RejectionError) Unwrap() error {
	return e.Kind
}
