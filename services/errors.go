package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBoardNotFound covers boards that do not exist or are soft-deleted.
	ErrBoardNotFound = errors.New("board not found")

	// ErrNotFoundOrForbidden is deliberately a single condition: callers must
	// not be able to tell a missing board apart from one they do not own.
	ErrNotFoundOrForbidden = errors.New("board not found or you do not have permission to delete this board")

	// ErrNotAMember is returned when a nickname mutation targets a user who is
	// neither an owner nor a member of the board.
	ErrNotAMember = errors.New("user is not a member of this board")
)

// ValidationError carries every schema violation found at create time.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("board validation failed: %s", strings.Join(e.Violations, "; "))
}
