package ingest

import "github.com/spec-kit/helpdesk-service/internal/storage"

// Envelope is the channel-agnostic inbound message consumed from the host's
// messaging dispatch.
type Envelope struct {
	Source      string         `json:"source"`
	Sender      string         `json:"sender"`
	Subject     string         `json:"subject,omitempty"`
	Content     string         `json:"content"`
	Channel     string         `json:"channel,omitempty"`
	Space       string         `json:"space,omitempty"`
	Attachments []EnvelopeFile `json:"attachments,omitempty"`
}

// EnvelopeFile carries one inbound attachment.
type EnvelopeFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Content  []byte `json:"content"`
}

// Conversation returns the chat scope identifier: channel for slack,
// space for chat.
func (e Envelope) Conversation() string {
	if e.Channel != "" {
		return e.Channel
	}
	return e.Space
}

func (e Envelope) inboundFiles() []storage.InboundFile {
	files := make([]storage.InboundFile, 0, len(e.Attachments))
	for _, att := range e.Attachments {
		files = append(files, storage.InboundFile{
			Name:     att.Name,
			MimeType: att.MimeType,
			Content:  att.Content,
		})
	}
	return files
}

// Result is the structured response the pipeline always returns to the
// host delivery system, success or not.
type Result struct {
	Status    string `json:"status"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	CardID    string `json:"card_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

const (
	// StatusSuccess tags a processed envelope.
	StatusSuccess = "success"
	// StatusError tags a rejected or failed envelope.
	StatusError = "error"
)

func successResult(message, cardID, messageID string) Result {
	return Result{Status: StatusSuccess, Message: message, CardID: cardID, MessageID: messageID}
}

func errorResult(code, message string) Result {
	return Result{Status: StatusError, Code: code, Message: message}
}
