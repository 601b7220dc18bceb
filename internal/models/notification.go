package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is a log row for every outbound email the dispatcher sends.
// TaskID is nil for account emails and for rejection notices, whose task row
// no longer exists by the time the mail goes out.
type Notification struct {
	ID uint `gorm:"primarykey"`

	TaskID *uint `gorm:"index"`
	UserID *uint `gorm:"index"`

	Event     string `gorm:"not null"`
	Recipient string `gorm:"not null"`
	Subject   string `gorm:"not null"`
	Payload   datatypes.JSON
	SentAt    time.Time `gorm:"not null"`
}
