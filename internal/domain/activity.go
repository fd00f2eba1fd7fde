package domain

import "time"

// ActivityType enumerates audit log events.
type ActivityType string

const (
	ActivityCardCreated    ActivityType = "card_created"
	ActivityCardUpdated    ActivityType = "card_updated"
	ActivityCardDeleted    ActivityType = "card_deleted"
	ActivityMessageAdded   ActivityType = "message_added"
	ActivitySenderRejected ActivityType = "sender_rejected"
	ActivityMeetingRequest ActivityType = "meeting_requested"
	ActivitySettingsSaved  ActivityType = "settings_saved"
	ActivityOrphansRemoved ActivityType = "orphans_removed"
)

// Activity is an append-only audit entry. Rows are never mutated and are
// only removed by the retention cleanup.
type Activity struct {
	ID        string         `db:"id"`
	Type      ActivityType   `db:"type"`
	Actor     string         `db:"actor"`
	CardID    *string        `db:"card_id"`
	Details   map[string]any `db:"details"`
	CreatedAt time.Time      `db:"created_at"`
}
