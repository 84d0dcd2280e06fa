// Package mqtt connects MIDNAM Core to an MQTT broker.
//
// The core only publishes. Preview MIDI messages go to
// {prefix}/preview/{device}/midi, where a MIDI bridge forwards them to
// hardware, and local store changes go to {prefix}/store/{kind}. A retained
// {prefix}/system/status message with a Last Will reports whether the core
// is online.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().PreviewMIDI("roland-jv-1080")
//	err = client.PublishJSON(ctx, topic, msg)
package mqtt
