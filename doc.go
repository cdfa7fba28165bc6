// Package watchdog provides a cross-platform filesystem change-notification
// engine: register interest in a directory, optionally recursive and
// optionally filtered to specific change kinds, and receive a serialized
// stream of events on your handler.
//
// The core type is Observer, which owns one emitter per distinct watch,
// a deduplicating shared event queue, and a single consumer goroutine that
// fans events out to the registered handlers.
//
// # Observer
//
// Events flow through a fixed pipeline:
//
//	EventSource → EventEmitter → queue (skip-repeats) → consumer → handlers
//
// Handlers always run on the single consumer goroutine, one at a time, in
// registration order. A handler may reschedule, unschedule, or edit the
// handler registry from inside its own callback; a handler removed by an
// earlier handler in the same dispatch does not receive the in-flight
// event.
//
// # Watches
//
// An ObservedWatch is a plain value of (path, recursive, filter).
// Structurally equal watches are the same watch: scheduling the same
// configuration twice attaches a second handler to one shared emitter.
//
// # Sources
//
// The EventSource interface abstracts how changes are detected. The
// package provides:
//
//   - NewFSNotifySource: native notification via fsnotify
//   - NewPollingSource: stat-scan fallback for network mounts and the like
//   - NewDefaultSource: fsnotify where available, polling otherwise
//   - ChannelSource: in-process feed for testing and custom integrations
//
// # Example
//
//	observer := watchdog.New(watchdog.NewDefaultSource)
//
//	handler := watchdog.FuncHandler(func(ctx context.Context, e watchdog.Event) error {
//	    log.Printf("%s", e)
//	    return nil
//	})
//
//	watch, err := observer.Schedule(handler, "/etc/myapp", true, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := observer.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer func() {
//	    observer.Stop()
//	    observer.Join()
//	}()
//
//	_ = watch // keep for Unschedule
package watchdog
