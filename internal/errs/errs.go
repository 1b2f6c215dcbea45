package errs

import "fmt"

// NotFoundError is returned when an unknown id is passed to a mutation.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ValidationError is returned when a required field is empty or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RemoteError wraps a transport or store failure, including auth and
// permission failures surfaced by the store.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// CapReachedError is returned when a user has exhausted the vote cap for a
// category. Checked client-side; the store never raises it.
type CapReachedError struct {
	UserID string
	Type   string
	Day    string
}

func (e *CapReachedError) Error() string {
	return fmt.Sprintf("vote cap reached for user %s (type %s, day %s)", e.UserID, e.Type, e.Day)
}
