package eventbus

import (
	"strings"

	"github.com/amirasaad/ledger/pkg/domain/event"
)

// streamFor returns the Redis stream for the given event type, one stream
// per event-type family.
func streamFor(eventType string) string {
	return nameFor("events", eventType)
}

// dlqStreamFor returns the dead-letter stream for the given event type.
func dlqStreamFor(eventType string) string {
	return nameFor("dlq", eventType)
}

var subjects = map[string]string{
	event.TypeAccountCreated: "account:created",
	event.TypeMoneyDeposited: "account:deposited",
	event.TypeMoneyWithdrawn: "account:withdrawn",
}

func nameFor(prefix, eventType string) string {
	if subject, ok := subjects[eventType]; ok {
		return prefix + ":" + subject
	}
	return prefix + ":" + strings.ToLower(eventType)
}
