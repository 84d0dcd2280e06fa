package editor

import (
	"context"
	"strings"
	"time"
)

// Store event channels broadcast by the Service.
const (
	EventSaved   = "store.saved"
	EventDeleted = "store.deleted"
	EventCleared = "store.cleared"
)

// eventPublishTimeout bounds one MQTT store event publish.
const eventPublishTimeout = 5 * time.Second

// Event describes one local store change.
type Event struct {
	Type         string    `json:"type"`
	Path         string    `json:"path,omitempty"`
	ID           string    `json:"id,omitempty"`
	IsUpdate     bool      `json:"isUpdate"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	Model        string    `json:"model,omitempty"`
	At           time.Time `json:"at"`
}

// action returns the short event name, such as "saved".
func (e Event) action() string {
	return strings.TrimPrefix(e.Type, "store.")
}

// Notifier receives store events. The WebSocket hub satisfies it.
type Notifier interface {
	Broadcast(channel string, payload any)
}

// ActivityRecorder receives one call per store change. influxdb.Client satisfies it.
type ActivityRecorder interface {
	RecordActivity(action, path, manufacturer string, sizeBytes int, isUpdate bool)
}

// Publisher sends one JSON payload to a topic. mqtt.Client satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, topic string, v any) error
}

// StoreTopics names per-kind store event topics. mqtt.Topics satisfies it.
type StoreTopics interface {
	StoreEvent(kind string) string
}

// MQTTNotifier forwards store events to MQTT.
type MQTTNotifier struct {
	pub    Publisher
	topics StoreTopics
	logger Logger
}

// NewMQTTNotifier creates a Notifier publishing to topics.StoreEvent(kind).
func NewMQTTNotifier(pub Publisher, topics StoreTopics, logger Logger) *MQTTNotifier {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTNotifier{pub: pub, topics: topics, logger: logger}
}

// Broadcast publishes payload. Failures are logged, not returned.
func (n *MQTTNotifier) Broadcast(channel string, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
	defer cancel()

	topic := n.topics.StoreEvent(strings.TrimPrefix(channel, "store."))
	if err := n.pub.PublishJSON(ctx, topic, payload); err != nil {
		n.logger.Warn("store event publish failed", "topic", topic, "error", err)
	}
}
