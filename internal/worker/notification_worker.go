package worker

import (
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
)

// StartNotificationWorker subscribes the notifier to card lifecycle events.
func StartNotificationWorker(dispatcher events.Dispatcher, notifier *notify.Notifier) {
	if notifier == nil {
		return
	}
	notifier.RegisterHandlers(dispatcher)
}
