// Package model contains the domain models of the announcer: subscriber
// identities, announcement events and the persisted subscription rules and
// attributes that decide who hears about them.
package model

import "time"

// Realms known to the shipped producers and formatters.
const (
	RealmTicket = "ticket"
	RealmWiki   = "wiki"
)

// Event categories raised by the shipped producers.
const (
	CategoryCreated         = "created"
	CategoryChanged         = "changed"
	CategoryDeleted         = "deleted"
	CategoryVersionDeleted  = "version deleted"
	CategoryAttachmentAdded = "attachment added"
)

// Attachment describes a file attached to the event target.
type Attachment struct {
	Filename    string    `json:"filename"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewAttachment creates an attachment reference stamped with the current time.
func NewAttachment(filename, description, author string, size int64) *Attachment {
	return &Attachment{
		Filename:    filename,
		Description: description,
		Author:      author,
		Size:        size,
		CreatedAt:   time.Now(),
	}
}

// nowMicros returns the current time as epoch microseconds, the unit used by
// the time and changetime columns.
func nowMicros() int64 {
	return time.Now().UnixMicro()
}
