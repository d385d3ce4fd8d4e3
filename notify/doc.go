/*
Package notify defines change events and the Notifier contract entitysync
dispatches them through.

An Event is tagged insert, update or delete and carries the entity type,
schema and table it belongs to:

	type Event struct {
	    Kind           Kind     // insert, update, delete
	    Entities       []any    // insert: stored entities; delete: identifier-only images
	    Before, After  []any    // update images
	    ModifiedFields []string // update: fields whose value changed
	    Mode           Mode     // sync or async delivery
	}

Notifiers:
  - Recorder: keeps events in memory for tests
  - Async: queues async events for background delivery
  - Instrument: Prometheus counters and latency around any notifier
  - natsnotify: publishes events to a NATS subject
  - s3audit: writes events as JSON objects to an S3 bucket

Notifiers compose:

	n := notify.NewAsync(notify.Multi{natsPub, audit})
	defer n.Close()
*/
package notify
