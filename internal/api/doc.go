// Package api implements the HTTP REST API and WebSocket server for MIDNAM Core.
//
// This package provides:
//   - REST endpoints for local records, device selection, creation and the catalog
//   - Editing sessions with patch and note preview
//   - WebSocket hub broadcasting local store changes
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Graceful Degradation
//
// The server runs without MQTT, InfluxDB or the remote catalog. Without the
// remote API only local records can be selected; without MQTT preview
// endpoints answer 503. A local store that cannot open answers 503 with code
// store_unavailable while the catalog still serves the remote side.
//
// Record paths contain slashes and are taken from the rest of the URL:
//
//	PUT /api/v1/records/Roland/JV-1080.midnam
package api
