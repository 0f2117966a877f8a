package engine

import "errors"

// ErrStopped is returned by Call once the engine no longer accepts tasks.
var ErrStopped = errors.New("engine: stopped")
