package channel

import "errors"

// Custom channel service errors
var (
	// ErrDuplicateChannelName indicates a channel with the same name already exists
	ErrDuplicateChannelName = errors.New("channel name already exists")

	// ErrInvalidChannelName indicates the channel name is empty or too long
	ErrInvalidChannelName = errors.New("channel name must be between 1 and 255 characters")

	// ErrChannelNotFound indicates the requested channel does not exist
	ErrChannelNotFound = errors.New("channel not found")

	// ErrContentNotFound indicates the requested content item does not exist
	ErrContentNotFound = errors.New("content item not found")

	// ErrDuplicateContent indicates a content item is already registered for the path
	ErrDuplicateContent = errors.New("content item already registered for path")

	// ErrUnsupportedFormat indicates the file extension is not in the configured formats
	ErrUnsupportedFormat = errors.New("unsupported media format")

	// ErrUnreadableContent indicates the content file cannot be read
	ErrUnreadableContent = errors.New("content file is not readable")

	// ErrPlaylistItemNotFound indicates the requested playlist item does not exist
	ErrPlaylistItemNotFound = errors.New("playlist item not found")

	// ErrInvalidPosition indicates the position is negative
	ErrInvalidPosition = errors.New("position must be non-negative")
)

// IsDuplicateName checks if the error is a duplicate channel name error
func IsDuplicateName(err error) bool {
	return errors.Is(err, ErrDuplicateChannelName)
}

// IsChannelNotFound checks if the error is a channel not found error
func IsChannelNotFound(err error) bool {
	return errors.Is(err, ErrChannelNotFound)
}

// IsContentNotFound checks if the error is a content not found error
func IsContentNotFound(err error) bool {
	return errors.Is(err, ErrContentNotFound)
}

// IsPlaylistItemNotFound checks if the error is a playlist item not found error
func IsPlaylistItemNotFound(err error) bool {
	return errors.Is(err, ErrPlaylistItemNotFound)
}

// IsInvalidPosition checks if the error is an invalid position error
func IsInvalidPosition(err error) bool {
	return errors.Is(err, ErrInvalidPosition)
}
