package cnst

import "errors"

var (
	// ErrNotFound is returned when a record does not exist or is outside
	// the caller's visibility
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when an email address is already taken
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrDuplicateDealerCode is returned when a dealer code is already taken
	ErrDuplicateDealerCode = errors.New("duplicate dealer code")
	// ErrRoleNotFound is returned when a user has no resolvable primary role
	ErrRoleNotFound = errors.New("primary role not found")
	// ErrNoPrimaryRole is returned when a role assignment would leave a user
	// without exactly one primary role
	ErrNoPrimaryRole = errors.New("exactly one primary role is required")
)
