package domain

import "time"

// Attachment links a stored object to a card and optionally to the message
// it arrived with. StoragePath points into the object-store namespace owned
// by the storage gateway.
type Attachment struct {
	ID          string    `db:"id"`
	CardID      string    `db:"card_id"`
	MessageID   *string   `db:"message_id"`
	Name        string    `db:"name"`
	MimeType    string    `db:"mime_type"`
	SizeBytes   int64     `db:"size_bytes"`
	StoragePath string    `db:"storage_path"`
	CreatedAt   time.Time `db:"created_at"`
}
