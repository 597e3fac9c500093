package models

import "time"

// Content kinds selectable by the picker
const (
	ContentKindQuote = "quotes"
	ContentKindJoke  = "jokes"
)

// ContentItem represents a curated quote or joke
type ContentItem struct {
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty" db:"last_used"`
	Text      string     `json:"text" db:"text"`
	Category  string     `json:"category" db:"category"`
	ID        int64      `json:"id" db:"id"`
	UsedCount int        `json:"used_count" db:"used_count"`
}
