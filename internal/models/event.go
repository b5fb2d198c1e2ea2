package models

import "time"

// Event is the booked event. It is managed elsewhere; reconciliation only reads
// its name and date for the confirmation message.
type Event struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name string    `gorm:"type:varchar(255)" json:"name"`
	Slug string    `gorm:"type:varchar(255);uniqueIndex" json:"slug"`
	Date time.Time `json:"date"`
}
