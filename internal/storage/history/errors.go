package history

import "errors"

var (
	ErrBucketNotFound = errors.New("bucket not found")
	ErrNilDB          = errors.New("database connection is nil")
	ErrInvalidLimit   = errors.New("limit must not be negative")
)
