package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "midnam"

// Topics builds MIDNAM Core MQTT topics under a configurable prefix.
//
//	topics := mqtt.Topics{Prefix: "studio"}
//	topics.PreviewMIDI("roland-jv-1080")
//	// Returns: "studio/preview/roland-jv-1080/midi"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.Trim(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: midnam/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.prefix())
}

// PreviewMIDI returns the topic carrying preview MIDI messages for one device.
// A MIDI bridge subscribes here and forwards the bytes to hardware.
//
// Example: midnam/preview/roland-jv-1080/midi
func (t Topics) PreviewMIDI(deviceSlug string) string {
	return fmt.Sprintf("%s/preview/%s/midi", t.prefix(), deviceSlug)
}

// AllPreviewMIDI returns a wildcard matching every device's preview topic.
//
// Example: midnam/preview/+/midi
func (t Topics) AllPreviewMIDI() string {
	return fmt.Sprintf("%s/preview/+/midi", t.prefix())
}

// StoreEvent returns the topic for local store change events of one kind
// (saved, deleted, cleared).
//
// Example: midnam/store/saved
func (t Topics) StoreEvent(kind string) string {
	return fmt.Sprintf("%s/store/%s", t.prefix(), kind)
}

// AllStoreEvents returns a wildcard matching every store event.
//
// Example: midnam/store/+
func (t Topics) AllStoreEvents() string {
	return fmt.Sprintf("%s/store/+", t.prefix())
}
