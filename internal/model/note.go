package model

import "time"

// Note is a personal text note owned by a single user.
// Notes are only ever visible to their owner — every query is scoped by UserID.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
