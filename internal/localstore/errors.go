package localstore

import "errors"

// Errors returned by the local store.
//
// A missing record is not an error: Get returns nil and Delete returns false.
//
//	if errors.Is(err, localstore.ErrQuotaExceeded) {
//	    // suggest removing old records
//	}
var (
	// ErrStoreUnavailable is returned when the engine could not be opened or
	// migrated. The failure is remembered, so every later call returns it too.
	ErrStoreUnavailable = errors.New("localstore: store unavailable")

	// ErrQuotaExceeded is returned when a write would exceed the configured
	// byte quota or the engine reports the disk is full.
	ErrQuotaExceeded = errors.New("localstore: quota exceeded")

	// ErrInvalidPath is returned when a record path is empty.
	ErrInvalidPath = errors.New("localstore: invalid path")
)
