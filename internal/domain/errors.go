package domain

import "errors"

var (
	// ErrConfiguration marks a missing or invalid setting at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrPersistence marks a failed state store read or write. It aborts the
	// rest of the tick.
	ErrPersistence = errors.New("persistence error")

	// ErrDispatch marks a failed notification delivery. It is logged and
	// swallowed; the flag flip that preceded it stays.
	ErrDispatch = errors.New("dispatch error")

	// ErrBackupSource marks a failed backup listing.
	ErrBackupSource = errors.New("backup source error")

	ErrNotFound = errors.New("not found")
)
