package wifi

import "errors"

var (
	ErrNotSupported     = errors.New("not supported")
	ErrNotFound         = errors.New("not found")
	ErrNotAvailable     = errors.New("not available")
	ErrOperationFailed  = errors.New("operation failed")
	ErrWirelessDisabled = errors.New("wireless is disabled")

	// ErrMalformedOutput marks a tool output record that does not have the
	// expected shape. Such records are skipped, not fatal.
	ErrMalformedOutput = errors.New("malformed tool output")
	// ErrNoSSID marks a scan record for a network that does not broadcast a name.
	ErrNoSSID = errors.New("network has no ssid")

	// ErrConfigurationRejected means the profile modification failed and
	// nothing was applied.
	ErrConfigurationRejected = errors.New("configuration rejected")
	// ErrAppliedButNotActivated means the profile was saved but bringing the
	// connection up failed, so the new settings are not live.
	ErrAppliedButNotActivated = errors.New("configuration saved but activation failed")
)
