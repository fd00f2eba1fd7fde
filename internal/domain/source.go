package domain

// Source identifies the inbound medium a card or message arrived through.
type Source string

const (
	SourceEmail Source = "email"
	SourceSlack Source = "slack"
	SourceChat  Source = "chat"
	SourceWeb   Source = "web"
)

// ParseSource maps a raw channel string onto the known source set. The
// boolean is false for anything outside it, so callers are forced to handle
// the unknown case explicitly.
func ParseSource(raw string) (Source, bool) {
	switch Source(raw) {
	case SourceEmail:
		return SourceEmail, true
	case SourceSlack:
		return SourceSlack, true
	case SourceChat:
		return SourceChat, true
	case SourceWeb:
		return SourceWeb, true
	}
	return "", false
}

// Conversational reports whether the source threads messages onto an
// existing active card. Email deliberately does not: every inbound email
// opens a fresh card regardless of prior conversation.
func (s Source) Conversational() bool {
	return s == SourceSlack || s == SourceChat
}
