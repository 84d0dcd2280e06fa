// Package influxdb records MIDNAM Core editor activity in InfluxDB.
//
// Three measurements are written:
//   - edit_activity: one point per local store save, delete or clear
//   - preview: one point per patch or note preview
//   - store_stats: periodic snapshots of record count and total size
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without metrics
//	}
//	defer client.Close()
//
//	client.RecordActivity("saved", "roland/jv-1080.midnam", "Roland", 48213, false)
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Asynchronous write errors go to the SetOnError callback.
package influxdb
