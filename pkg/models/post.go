package models

import "time"

// Content types recorded on published posts
const (
	ContentTypeNews          = "news"
	ContentTypeQuote         = "quote"
	ContentTypeJoke          = "joke"
	ContentTypePriceFallback = "price_fallback"
	ContentTypeManual        = "manual"
)

// Post represents a message published to the primary platform
type Post struct {
	Timestamp             time.Time  `json:"timestamp" db:"timestamp"`
	EngagementLastChecked *time.Time `json:"engagement_last_checked,omitempty" db:"engagement_last_checked"`
	ExternalPostID        string     `json:"external_post_id" db:"external_post_id"`
	Text                  string     `json:"text" db:"text"`
	ContentType           string     `json:"content_type" db:"content_type"`
	ID                    int64      `json:"id" db:"id"`
	Price                 float64    `json:"price" db:"price"`
	PriceChangePct        float64    `json:"price_change_pct" db:"price_change_pct"`
	Likes                 int        `json:"likes" db:"likes"`
	Retweets              int        `json:"retweets" db:"retweets"`
}
