// Package duration resolves playback lengths for content items, backed by a
// persistent cache and an external probe.
package duration

import "errors"

var (
	// ErrCacheMiss is returned by a Store when no duration is cached for an item
	ErrCacheMiss = errors.New("duration not cached")
	// ErrNonPositiveDuration is recorded when a probe reports a zero or negative length
	ErrNonPositiveDuration = errors.New("probe reported non-positive duration")
	// ErrJobNotFound indicates the warm job id is unknown
	ErrJobNotFound = errors.New("warm job not found")
	// ErrJobAlreadyRunning indicates another warm job is still running
	ErrJobAlreadyRunning = errors.New("a warm job is already running")
	// ErrJobNotRunning indicates a cancel was requested for a finished job
	ErrJobNotRunning = errors.New("warm job is not running")
)

// IsCacheMiss reports whether err means the item has no cached duration
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
