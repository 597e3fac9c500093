package models

import "time"

// Price represents single BTC/USD price observation
type Price struct {
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Source    string    `json:"source" db:"source"`
	ID        int64     `json:"id" db:"id"`
	Price     float64   `json:"price" db:"price"`
}
