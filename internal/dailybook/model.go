// Package dailybook keeps the admin-authored chronological notes ledger.
package dailybook

import "time"

// Entry is a single free-text note.
type Entry struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EntryRequest is the body of create and update calls.
type EntryRequest struct {
	Content string `json:"content" validate:"max=10000"`
}
