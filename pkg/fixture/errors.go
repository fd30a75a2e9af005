package fixture

import "errors"

var (
	// ErrBinaryNotFound means no directory holding mongod could be located.
	ErrBinaryNotFound = errors.New("mongod binaries not found")

	// ErrNotReady means mongod did not accept connections before the start
	// timeout, or exited while starting.
	ErrNotReady = errors.New("mongod did not become ready")

	// ErrAlreadyStopped is returned by a second Stop.
	ErrAlreadyStopped = errors.New("fixture already stopped")
)
