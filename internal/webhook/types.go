package webhook

import "time"

// Event types that can trigger webhooks
const (
	EventRuleCreated  = "rule.created"
	EventRuleUpdated  = "rule.updated"
	EventRuleDeleted  = "rule.deleted"
	EventRuleCombined = "rule.combined"
)

// Event is the JSON body posted to every matching endpoint.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"event"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment,omitempty"`
	Rule        RuleRef   `json:"rule"`
	Sources     []int64   `json:"sources,omitempty"`
	RequestID   string    `json:"requestId,omitempty"`
}

// RuleRef identifies the rule an event is about. Source is empty for
// deletions.
type RuleRef struct {
	ID     int64  `json:"id"`
	Source string `json:"rule,omitempty"`
}

// Endpoint is a subscriber URL. An empty Events list subscribes to every
// event type.
type Endpoint struct {
	URL    string
	Secret string
	Events []string
}

// Notifier accepts events for asynchronous delivery.
type Notifier interface {
	Dispatch(Event)
}
