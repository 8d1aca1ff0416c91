package container

import "errors"

// ErrInvalidOptions reports configuration that cannot be wired.
var ErrInvalidOptions = errors.New("invalid options")
