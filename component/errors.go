package component

// ValidationError reports caller input that cannot be executed. It is
// never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "component: " + e.Message
}

// ErrNoCriteria is returned by Update when no WHERE criteria are given.
var ErrNoCriteria = &ValidationError{Message: "cannot update without criteria"}

func invalid(message string) error {
	return &ValidationError{Message: message}
}
