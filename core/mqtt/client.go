package mqtt

import "fmt"

// Publisher sends notifications to an MQTT broker.
type Publisher interface {
	// Publish sends payload to topic, retrying transient failures.
	Publish(topic string, payload []byte) error
}

// CascadeTopic is the topic carrying cascade results for a scenario.
func CascadeTopic(prefix, scenario string) string {
	return fmt.Sprintf("%s/cascade/%s", prefix, scenario)
}

// DispatchStatusTopic is the topic carrying the status of a dispatch session.
func DispatchStatusTopic(prefix, sessionID string) string {
	return fmt.Sprintf("%s/dispatch/%s/status", prefix, sessionID)
}

// DispatchEventTopic carries individual assignment and transition events.
func DispatchEventTopic(prefix, sessionID string) string {
	return fmt.Sprintf("%s/dispatch/%s/events", prefix, sessionID)
}
