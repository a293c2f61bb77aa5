package timeline

import "errors"

var (
	// ErrInvalidWindow is returned when a window ends before it starts
	ErrInvalidWindow = errors.New("window end is before window start")
)

// IsInvalidWindow checks if the error is an invalid window error
func IsInvalidWindow(err error) bool {
	return errors.Is(err, ErrInvalidWindow)
}
