package vpn

import "errors"

var (
	// ErrMalformedOutput marks a connection row that does not have the
	// expected shape. Such rows are skipped.
	ErrMalformedOutput = errors.New("malformed tool output")
	// ErrAmbiguousProfileType means no type was given and none could be
	// inferred from the file extension.
	ErrAmbiguousProfileType = errors.New("VPN type required and could not be detected from extension")
)
