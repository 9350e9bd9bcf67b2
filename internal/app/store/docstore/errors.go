package docstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate reports a unique-key violation.
	ErrDuplicate = errors.New("duplicate key")
	// ErrUnavailable reports that the backing store could not be reached.
	ErrUnavailable = errors.New("document store unavailable")
)

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "club", "student", "membership"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a *NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// PairID is the identifier used for a (club, student) membership in
// errors and lock keys.
func PairID(clubID, studentID string) string {
	return clubID + "/" + studentID
}
