package webhooks

import (
	"time"

	"github.com/google/uuid"
)

// Event types dispatched by the daemon.
const (
	EventIntegrityFailed   = "ledger.integrity_failed"
	EventIntegrityRestored = "ledger.integrity_restored"
	EventChainImported     = "ledger.chain_imported"
)

// Subscription is a configured webhook receiver. An empty Events list
// subscribes to every event.
type Subscription struct {
	URL    string   `mapstructure:"url"`
	Secret string   `mapstructure:"secret"`
	Events []string `mapstructure:"events"`
}

// Wants reports whether the subscription receives eventType.
func (s Subscription) Wants(eventType string) bool {
	if len(s.Events) == 0 {
		return true
	}
	for _, e := range s.Events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}

// Event is the JSON body POSTed to subscribers.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}
