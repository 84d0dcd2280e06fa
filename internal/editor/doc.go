// Package editor coordinates the local store, the remote device API and the
// normalizer for the MIDNAM editor.
//
// A Service selects devices (local store first, then remote), saves and
// creates local records, merges the catalog and fans store changes out to
// notifiers such as the WebSocket hub and MQTT. Editing sessions hold the
// per-client selection that patch and note preview act on.
//
//	svc := editor.NewService(store,
//	    editor.WithRemote(remoteClient),
//	    editor.WithNotifier(hub),
//	    editor.WithPlayer(player),
//	)
//	sel, err := svc.SelectDevice(ctx, editor.Ref{Key: "Roland|JV-1080"})
package editor
