package sitedock

import "errors"

var (
	// ErrNotFound is returned when a site or user does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidName is returned when a site name does not match the slug pattern
	ErrInvalidName = errors.New("invalid site name")
	// ErrMissingField is returned when an upload is missing a required field
	ErrMissingField = errors.New("missing field")
	// ErrUnsupportedFormat is returned for archives with an unrecognized suffix
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrUnsafePath is returned when an archive entry would escape the extraction directory
	ErrUnsafePath = errors.New("unsafe archive path")
	// ErrNameConflict is returned when a site name is already claimed by another owner
	ErrNameConflict = errors.New("site name already taken")
	// ErrUnauthorized is returned when authentication or ownership checks fail
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAlreadyExists is returned when creating a record whose id or username is taken
	ErrAlreadyExists = errors.New("already exists")
	// ErrAccountNotEmpty is returned when deleting an account that still owns sites
	ErrAccountNotEmpty = errors.New("account still owns sites")
)
