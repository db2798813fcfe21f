package store

import "errors"

var (
	// ErrConnection indicates the store is unreachable. Not retried
	// internally; surfaced to the caller of the invoking operation.
	ErrConnection = errors.New("store connection failed")

	// ErrAuthentication indicates the store rejected the configured
	// credentials. Kept distinct from ErrConnection so callers can tell a
	// configuration mistake from a transient outage.
	ErrAuthentication = errors.New("store authentication failed")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
)
