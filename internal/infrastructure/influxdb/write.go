package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementEditActivity = "edit_activity"
	MeasurementPreview      = "preview"
	MeasurementStoreStats   = "store_stats"
)

// RecordActivity writes one local store change as an edit_activity point.
//
// Parameters:
//   - action: "saved", "deleted" or "cleared" (tag)
//   - path: Record path (field, paths are unbounded)
//   - manufacturer: Device manufacturer, tagged only when not empty
//   - sizeBytes: Document size for saves, zero otherwise
//   - isUpdate: Whether a save replaced an existing record
//
// Dropped silently when the client is not connected.
func (c *Client) RecordActivity(action, path, manufacturer string, sizeBytes int, isUpdate bool) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{"action": action}
	if manufacturer != "" {
		tags["manufacturer"] = manufacturer
	}

	point := write.NewPoint(
		MeasurementEditActivity,
		tags,
		map[string]any{
			"path":       path,
			"size_bytes": sizeBytes,
			"is_update":  isUpdate,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// RecordPreview writes one preview request. kind is patch or note and
// messages is the number of MIDI messages published.
func (c *Client) RecordPreview(device, kind string, channel, messages int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		MeasurementPreview,
		map[string]string{
			"device": device,
			"kind":   kind,
		},
		map[string]any{
			"channel":  channel,
			"messages": messages,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// WriteStoreStats writes a snapshot of local store totals, taken by
// midnamd once a minute. at is the sample time.
func (c *Client) WriteStoreStats(count, totalSizeBytes int64, manufacturers int, at time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		MeasurementStoreStats,
		nil,
		map[string]any{
			"count":            count,
			"total_size_bytes": totalSizeBytes,
			"manufacturers":    manufacturers,
		},
		at,
	)
	c.writeAPI.WritePoint(point)
}
