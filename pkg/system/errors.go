package system

import "errors"

var (
	// ErrUnsupportedPlatform is returned when no data source strategy exists
	// for the host operating system.
	ErrUnsupportedPlatform = errors.New("platform not supported")

	// ErrMalformedField reports a raw field that could not be parsed. Other
	// fields of the same snapshot are unaffected.
	ErrMalformedField = errors.New("malformed field")

	// ErrNegativeDuration reports a derived duration below zero, such as a
	// total cpu time smaller than its user part.
	ErrNegativeDuration = errors.New("negative duration")
)

// IsUnsupportedPlatform reports whether err is ErrUnsupportedPlatform.
func IsUnsupportedPlatform(err error) bool {
	return errors.Is(err, ErrUnsupportedPlatform)
}
