package cli

import "fmt"

type notLoggedInError struct{}

func (notLoggedInError) Error() string {
	return "not logged in; run `taskpilot login` (or set TASKPILOT_TOKEN)"
}

func errNotLoggedIn() error { return notLoggedInError{} }

type validationError struct {
	field  string
	reason string
}

func (e validationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.field, e.reason)
}

// errInvalid flags bad input before any network call is made.
func errInvalid(field, reason string) error {
	return validationError{field: field, reason: reason}
}
