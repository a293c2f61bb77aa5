package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentItem represents a video in the catalog that can be placed on channels
type ContentItem struct {
	ID       uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	FilePath string    `json:"file_path" gorm:"type:text;not null;uniqueIndex;column:file_path" validate:"required"`
	Title    string    `json:"title" gorm:"type:text;not null;column:title"`
	// Tags is a comma separated list as stored by the catalog
	Tags      *string   `json:"tags,omitempty" gorm:"type:text;column:tags"`
	Year      *int      `json:"year,omitempty" gorm:"type:integer;column:year"`
	Category  *string   `json:"category,omitempty" gorm:"type:text;column:category"`
	CreatedAt time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
}

// NewContentItem creates a new ContentItem with generated UUID and timestamp
func NewContentItem(filePath, title string) *ContentItem {
	return &ContentItem{
		ID:        uuid.New(),
		FilePath:  filePath,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
}

// Metadata returns the fixed metadata record passed through to guide output
func (c *ContentItem) Metadata() ItemMetadata {
	md := ItemMetadata{Year: c.Year}
	if c.Tags != nil {
		for _, tag := range strings.Split(*c.Tags, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" || strings.EqualFold(tag, unknownValue) {
				continue
			}
			md.Tags = append(md.Tags, tag)
		}
	}
	if c.Category != nil {
		category := strings.TrimSpace(*c.Category)
		if category != "" && !strings.EqualFold(category, unknownValue) {
			md.Category = &category
		}
	}
	return md
}

// unknownValue is what the catalog importer writes for missing metadata
const unknownValue = "Unknown"

// ItemMetadata holds the optional metadata fields rendered into guides
type ItemMetadata struct {
	Tags     []string `json:"tags,omitempty"`
	Year     *int     `json:"year,omitempty"`
	Category *string  `json:"category,omitempty"`
}
