package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/midnam-core/internal/localstore"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	MQTT          ClientMetrics  `json:"mqtt"`
	InfluxDB      ClientMetrics  `json:"influxdb"`
	Store         StoreMetrics   `json:"store"`
	Sessions      int            `json:"sessions"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// ClientMetrics reports an optional outbound client.
type ClientMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// StoreMetrics contains local store totals. Error is set instead when the
// store is unavailable.
type StoreMetrics struct {
	Available bool             `json:"available"`
	Stats     localstore.Stats `json:"stats"`
	Error     string           `json:"error,omitempty"`
}

// handleMetrics returns runtime, client and store metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		MQTT:     clientMetrics(s.mqtt),
		InfluxDB: clientMetrics(s.influx),
		Sessions: s.editor.Sessions().Len(),
	}

	if stats, err := s.editor.Stats(r.Context()); err != nil {
		metrics.Store.Error = err.Error()
	} else {
		metrics.Store = StoreMetrics{Available: true, Stats: stats}
	}

	writeJSON(w, http.StatusOK, metrics)
}

func clientMetrics(c ConnectionReporter) ClientMetrics {
	if c == nil {
		return ClientMetrics{}
	}
	return ClientMetrics{Enabled: true, Connected: c.IsConnected()}
}
