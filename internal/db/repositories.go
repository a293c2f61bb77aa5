package db

// Repositories provides access to all database repositories
type Repositories struct {
	Channels      *ChannelRepository
	Content       *ContentRepository
	PlaylistItems *PlaylistItemRepository
	Durations     *DurationRepository
}

// NewRepositories creates a new repository collection
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Channels:      NewChannelRepository(db),
		Content:       NewContentRepository(db),
		PlaylistItems: NewPlaylistItemRepository(db),
		Durations:     NewDurationRepository(db),
	}
}
