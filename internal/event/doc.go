// Package event is the in-process event bus folio components use to
// observe each other without direct dependencies.
//
// The editor publishes a TransactionApplied event after every commit,
// carrying the transaction's position mapping. UI-facing collaborators
// (drag handles, bubble menus, remote cursors, upload sessions) subscribe
// and remap their own state:
//
//	bus := event.NewBus()
//	bus.Start()
//	event.SubscribePayload(bus, event.TopicTransactionApplied,
//	    func(ctx context.Context, p event.TransactionApplied) error {
//	        cursors = selection.MapAll(cursors, p.Doc, p.Mapping)
//	        return nil
//	    })
//
// # Topics
//
// Topics are dot separated. Subscriptions may use "*" for exactly one
// segment and "**" for zero or more:
//
//	document.*       document.loaded, document.saved
//	upload.**        every upload lifecycle event
//
// # Delivery
//
// Sync subscribers run in the publisher's goroutine in priority order.
// Async subscribers run on a worker pool; a full queue drops the event
// and counts it in Stats.
package event
