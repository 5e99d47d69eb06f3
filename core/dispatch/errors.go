package dispatch

import "errors"

// ErrInvalidArgument is wrapped by every error returned for a dispatch request
// naming an unknown, unavailable or already claimed crew or node.
var ErrInvalidArgument = errors.New("invalid argument")
